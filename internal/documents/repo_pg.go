package documents

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, title, description, file_name, file_path, file_size, mime_type, owner_id, created_at, updated_at`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		nullableString(doc.Description),
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.OwnerID,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// GetByID returns a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// List returns documents newest first. An empty owner matches every row.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE ($1 = '' OR owner_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	limit := any(nil)
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := r.DB.QueryContext(ctx, query, filter.OwnerID, limit, max(filter.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Update overwrites the mutable columns of an existing document.
func (r *PGRepo) Update(ctx context.Context, doc Document) error {
	const query = `
UPDATE documents
SET title = $2,
    description = $3,
    file_name = $4,
    file_path = $5,
    file_size = $6,
    mime_type = $7,
    updated_at = $8
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		nullableString(doc.Description),
		doc.FileName,
		doc.FilePath,
		doc.FileSize,
		doc.MimeType,
		doc.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes a document row.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var description sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&description,
		&doc.FileName,
		&doc.FilePath,
		&doc.FileSize,
		&doc.MimeType,
		&doc.OwnerID,
		&doc.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if description.Valid {
		doc.Description = description.String
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	} else {
		doc.UpdatedAt = doc.CreatedAt
	}
	return doc, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
