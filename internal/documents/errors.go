package documents

import (
	"errors"
	"fmt"

	"docs-backend/internal/access"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrForbidden    = access.ErrForbidden
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal hides storage and database failures from callers.
	ErrInternal = errors.New("internal error")
	// ErrOwnerNotFound is returned by OwnerReader implementations.
	ErrOwnerNotFound = errors.New("owner not found")
)

// InputError names the field that failed validation. It matches ErrInvalidInput.
type InputError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Issue)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(field, issue string) error {
	return &InputError{Field: field, Issue: issue}
}
