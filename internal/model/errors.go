package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the stores, the inventory service and the API.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateName      = errors.New("name already exists")
	ErrDuplicateItem      = errors.New("item with this name already exists in category")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrForbiddenReference = errors.New("reference not allowed")
	ErrDanglingReference  = errors.New("referenced record does not exist")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidImage       = errors.New("invalid image")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// FieldError attaches the offending request field to a taxonomy error.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewFieldError wraps err with the name of the field that caused it.
func NewFieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// ErrorField returns the field name attached to err, if any.
func ErrorField(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
