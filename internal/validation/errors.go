// Package validation checks request input before it reaches the store.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Error codes for machine-readable identification.
const (
	CodeInvalidJSON = "invalid_json"
	CodeSchema      = "schema"
	CodeInvalidID   = "invalid_id"
)

// Error locations.
const (
	LocationBody = "body"
	LocationPath = "path"
)

// ErrValidation is matched by every *Error via errors.Is.
var ErrValidation = errors.New("validation failed")

// Error reports one or more rejected request fields.
type Error struct {
	Fields []model.FieldError
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field != "" {
			parts = append(parts, fmt.Sprintf("%s.%s: %s", f.Location, f.Field, f.Message))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Location, f.Message))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

func newError(location, field, code, message string) *Error {
	return &Error{Fields: []model.FieldError{{
		Field:    field,
		Location: location,
		Code:     code,
		Message:  message,
	}}}
}
