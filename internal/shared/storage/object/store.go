package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys or file names that could escape the store.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Blob describes a stored object.
type Blob struct {
	Key         string
	Size        int64
	ContentType string
}

// Store saves, streams and deletes the files backing documents.
type Store interface {
	// Put stores r under a fresh key in ownerID's namespace. An empty or
	// generic contentType is replaced by one sniffed from the content.
	Put(ctx context.Context, ownerID, fileName, contentType string, r io.Reader) (Blob, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key returns ErrNotFound
	// where the backend can tell.
	Delete(ctx context.Context, key string) error
}
