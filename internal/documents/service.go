package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"docs-backend/internal/access"
	"docs-backend/internal/shared/metrics"
	"docs-backend/internal/shared/storage/object"
	"docs-backend/internal/shared/telemetry"
)

const (
	MaxListLimit = 100
	maxTitleLen  = 255
)

// OwnerReader resolves document owners. Implementations return
// ErrOwnerNotFound for unknown ids.
type OwnerReader interface {
	Owner(ctx context.Context, id string) (Owner, error)
}

// Service enforces the access policy around document storage.
type Service struct {
	Repo   Repo
	Store  object.Store
	Owners OwnerReader
	now    func() time.Time
	newID  func() string
}

// NewService constructs a Service.
func NewService(repo Repo, store object.Store, owners OwnerReader) *Service {
	return &Service{
		Repo:   repo,
		Store:  store,
		Owners: owners,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create stores the file and records a document owned by the caller.
func (s *Service) Create(ctx context.Context, id access.Identity, in CreateInput, up *Upload) (Document, error) {
	if err := access.CanCreate(id); err != nil {
		return Document{}, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if err := validateTitle(title); err != nil {
		return Document{}, err
	}
	if up == nil || up.Body == nil || strings.TrimSpace(up.FileName) == "" {
		return Document{}, invalid("file", "required")
	}
	if s.Owners != nil {
		if _, err := s.Owners.Owner(ctx, id.ID); err != nil {
			if errors.Is(err, ErrOwnerNotFound) {
				return Document{}, invalid("owner", "not_found")
			}
			return Document{}, s.internal("lookup owner", err)
		}
	}

	blob, err := s.put(ctx, id.ID, up)
	if err != nil {
		return Document{}, err
	}

	now := s.now().UTC()
	doc := Document{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FileName:    up.FileName,
		FilePath:    blob.Key,
		FileSize:    blob.Size,
		MimeType:    blob.ContentType,
		OwnerID:     id.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.discardFile(ctx, "", blob.Key)
		return Document{}, s.internal("create document", err)
	}

	metrics.IncDocumentsUploaded()
	telemetry.Info("document.created", map[string]any{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"size_bytes":  doc.FileSize,
		"mime_type":   doc.MimeType,
	})
	return doc, nil
}

// List returns every document for roles with global list scope and only the
// caller's own documents otherwise. A limit of zero or less returns the whole
// set; an explicit limit is capped at MaxListLimit.
func (s *Service) List(ctx context.Context, id access.Identity, limit, offset int) ([]Document, error) {
	filter := ListFilter{Limit: clampLimit(limit), Offset: max(offset, 0)}
	switch access.ScopeFor(id.Role, access.OpList) {
	case access.Allow:
	case access.OwnOnly:
		filter.OwnerID = id.ID
	default:
		return nil, ErrForbidden
	}
	docs, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, s.internal("list documents", err)
	}
	return docs, nil
}

// Get returns a document the caller may view.
func (s *Service) Get(ctx context.Context, docID string, id access.Identity) (Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	if err := access.CanView(id, doc.OwnerID); err != nil {
		return Document{}, ErrForbidden
	}
	return doc, nil
}

// Update applies metadata changes and optionally replaces the file. The new
// file is stored before the old one is removed.
func (s *Service) Update(ctx context.Context, docID string, id access.Identity, in UpdateInput, up *Upload) (Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return Document{}, err
	}
	if err := access.CanMutate(id, doc.OwnerID); err != nil {
		return Document{}, ErrForbidden
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if err := validateTitle(title); err != nil {
			return Document{}, err
		}
		doc.Title = title
	}
	if in.Description != nil {
		doc.Description = strings.TrimSpace(*in.Description)
	}

	oldKey := ""
	if up != nil {
		if up.Body == nil || strings.TrimSpace(up.FileName) == "" {
			return Document{}, invalid("file", "required")
		}
		blob, err := s.put(ctx, doc.OwnerID, up)
		if err != nil {
			return Document{}, err
		}
		oldKey = doc.FilePath
		doc.FileName = up.FileName
		doc.FilePath = blob.Key
		doc.FileSize = blob.Size
		doc.MimeType = blob.ContentType
	}
	doc.UpdatedAt = s.now().UTC()

	if err := s.Repo.Update(ctx, doc); err != nil {
		if up != nil {
			s.discardFile(ctx, doc.ID, doc.FilePath)
		}
		if errors.Is(err, ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, s.internal("update document", err)
	}
	if oldKey != "" {
		s.discardFile(ctx, doc.ID, oldKey)
	}
	return doc, nil
}

// Remove deletes the backing file and then the metadata. File deletion is
// best effort; a failure is logged and does not block the removal.
func (s *Service) Remove(ctx context.Context, docID string, id access.Identity) error {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return err
	}
	if err := access.CanMutate(id, doc.OwnerID); err != nil {
		return ErrForbidden
	}

	s.discardFile(ctx, doc.ID, doc.FilePath)

	if err := s.Repo.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return s.internal("delete document", err)
	}
	metrics.IncDocumentsDeleted()
	telemetry.Info("document.deleted", map[string]any{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"deleted_by":  id.ID,
	})
	return nil
}

// Open returns the document and a reader over its file. The caller closes it.
func (s *Service) Open(ctx context.Context, docID string, id access.Identity) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, docID, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := s.Store.Open(ctx, doc.FilePath)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, s.internal("open file", err)
	}
	return doc, rc, nil
}

// Owner resolves the owner of a document for responses. Unknown owners come
// back with only their id.
func (s *Service) Owner(ctx context.Context, ownerID string) Owner {
	if s.Owners == nil {
		return Owner{ID: ownerID}
	}
	owner, err := s.Owners.Owner(ctx, ownerID)
	if err != nil {
		return Owner{ID: ownerID}
	}
	return owner
}

func (s *Service) load(ctx context.Context, docID string) (Document, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return Document{}, invalid("id", "required")
	}
	doc, err := s.Repo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, s.internal("load document", err)
	}
	return doc, nil
}

func (s *Service) put(ctx context.Context, ownerID string, up *Upload) (object.Blob, error) {
	blob, err := s.Store.Put(ctx, ownerID, up.FileName, up.ContentType, up.Body)
	if err != nil {
		if errors.Is(err, object.ErrInvalidKey) {
			return object.Blob{}, invalid("file", "invalid_name")
		}
		return object.Blob{}, s.internal("store file", err)
	}
	return blob, nil
}

// discardFile deletes a stored file, logging instead of failing.
func (s *Service) discardFile(ctx context.Context, docID, key string) {
	if key == "" {
		return
	}
	err := s.Store.Delete(ctx, key)
	if err == nil || errors.Is(err, object.ErrNotFound) {
		return
	}
	metrics.IncFileCleanupFailed()
	telemetry.Warn("document.file_cleanup_failed", map[string]any{
		"document_id": docID,
		"file_path":   key,
		"error":       err,
	})
}

// internal logs the cause and returns an opaque error.
func (s *Service) internal(op string, err error) error {
	telemetry.Error("document.internal_error", map[string]any{
		"op":    op,
		"error": err,
	})
	return fmt.Errorf("%w: %s", ErrInternal, op)
}

func validateTitle(title string) error {
	if title == "" {
		return invalid("title", "required")
	}
	if len(title) > maxTitleLen {
		return invalid("title", "too_long")
	}
	return nil
}

// clampLimit maps non-positive limits to 0, meaning unbounded.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	return min(limit, MaxListLimit)
}
