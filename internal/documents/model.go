package documents

import (
	"io"
	"time"
)

// Document is the metadata for an uploaded file. FilePath is the object store
// key of the backing file.
type Document struct {
	ID          string
	Title       string
	Description string
	FileName    string
	FilePath    string
	FileSize    int64
	MimeType    string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Owner is the public view of a document's owner.
type Owner struct {
	ID    string
	Email string
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

type CreateInput struct {
	Title       string
	Description string
}

// UpdateInput holds optional changes; nil fields are left as they are.
type UpdateInput struct {
	Title       *string
	Description *string
}

// ListFilter narrows a listing. An empty OwnerID lists every document.
type ListFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}
