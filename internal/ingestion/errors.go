package ingestion

import "errors"

var (
	// ErrNotFound indicates the ingestion id was never submitted.
	ErrNotFound = errors.New("ingestion not found")

	// ErrInvalidInput indicates a missing file or id.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTerminal indicates an attempt to move a record out of a terminal state.
	ErrTerminal = errors.New("ingestion already in terminal state")

	// ErrDuplicateID indicates an id collision on insert.
	ErrDuplicateID = errors.New("duplicate ingestion id")
)
