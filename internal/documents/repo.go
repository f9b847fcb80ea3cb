package documents

import "context"

// Repo defines persistence operations for document metadata.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// List returns documents newest first.
	List(ctx context.Context, filter ListFilter) ([]Document, error)
	// Update overwrites an existing row. It returns ErrNotFound if the row
	// was deleted in the meantime rather than recreating it.
	Update(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id string) error
}
