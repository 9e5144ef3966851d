package suppliers

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
)

const (
	FieldSupplierName = "supplierName"
	FieldContactInfo  = "contactInfo"

	msgDuplicateContact = "This supplier contact info already exists."
)

var fieldLabels = map[string]string{
	FieldSupplierName: "Supplier name",
	FieldContactInfo:  "Contact info",
}

// ValidationError collects field level problems keyed by input field name.
// It matches shared.ErrValidation under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return shared.ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return shared.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == shared.ErrValidation
}

// Add records a message for field unless one is already present.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.Fields) == 0
}

// FieldErrors extracts the per-field messages from err, if any.
func FieldErrors(err error) map[string]string {
	var verr *ValidationError
	if errors.As(err, &verr) && verr != nil {
		return verr.Fields
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validate(input any, verr *ValidationError) error {
	err := s.validator.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	default:
		return fe.Error()
	}
}

// contactKey returns the case-folded form used for uniqueness comparisons.
func contactKey(contact string) string {
	return cases.Fold().String(strings.TrimSpace(contact))
}

func normalizeCreate(in CreateInput) CreateInput {
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	return in
}

func normalizeUpdate(in UpdateInput) UpdateInput {
	in.SupplierName = strings.TrimSpace(in.SupplierName)
	in.ContactInfo = strings.TrimSpace(in.ContactInfo)
	return in
}
