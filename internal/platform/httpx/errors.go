// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping binds a sentinel error to the problem it is reported as.
type ErrorMapping struct {
	Err    error
	Status int
	Title  string
}

// RespondError writes the problem of the first mapping whose Err matches err
// under errors.Is. Unmatched errors become an opaque 500.
func RespondError(w http.ResponseWriter, err error, mappings ...ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			Problem(w, m.Status, m.Title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
