package suppliers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
	"github.com/inventaris/inventaris/internal/platform/httpx"
	"github.com/inventaris/inventaris/internal/rbac"
	internalShared "github.com/inventaris/inventaris/internal/shared"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyModule = "suppliers.create"
	maxKeyLength      = 200
)

// IdempotencyPort claims and releases client supplied request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

var errorMappings = []httpx.ErrorMapping{
	{Err: shared.ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Err: shared.ErrConflict, Status: http.StatusConflict, Title: "Conflict"},
	{Err: internalShared.ErrIdempotencyConflict, Status: http.StatusConflict, Title: "Duplicate Request"},
}

// APIHandler exposes suppliers as JSON.
type APIHandler struct {
	logger      *slog.Logger
	service     *Service
	idempotency IdempotencyPort
	rbac        rbac.Middleware
}

// NewAPIHandler builds the JSON handler. idempotency may be nil, in which
// case Idempotency-Key headers are ignored.
func NewAPIHandler(logger *slog.Logger, service *Service, idempotency IdempotencyPort, rbac rbac.Middleware) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service, idempotency: idempotency, rbac: rbac}
}

func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []Supplier{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *APIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.fail(w, r, shared.ErrNotFound)
		return
	}
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be a JSON object")
		return
	}
	input.ActorID = internalShared.ActorIDFromContext(r.Context())

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if key != "" && h.idempotency != nil {
		if len(key) > maxKeyLength {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", idempotencyHeader+" is too long")
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		if key != "" && h.idempotency != nil {
			if relErr := h.idempotency.Delete(r.Context(), key, idempotencyModule); relErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/suppliers/"+strconv.FormatInt(created.ID, 10))
	httpx.JSON(w, http.StatusCreated, created)
}

// Update replaces a supplier. An omitted body id defaults to the path id.
func (h *APIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.fail(w, r, shared.ErrNotFound)
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body must be a JSON object")
		return
	}
	if input.ID == 0 {
		input.ID = id
	}
	input.ActorID = internalShared.ActorIDFromContext(r.Context())

	updated, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.service.Delete(r.Context(), id, internalShared.ActorIDFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shared.ErrValidation) {
		httpx.ValidationProblem(w, FieldErrors(err))
		return
	}
	if !isMapped(err) {
		h.logger.Error("suppliers api", slog.Any("error", err), slog.String("method", r.Method), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err, errorMappings...)
}

func isMapped(err error) bool {
	for _, m := range errorMappings {
		if errors.Is(err, m.Err) {
			return true
		}
	}
	return false
}
