package documents

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/access"
	"docs-backend/internal/shared/server/middleware"
	"docs-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id", h.update)
	rg.DELETE("/documents/:id", h.remove)
	rg.GET("/documents/:id/file", h.download)
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handler) create(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	h.limitBody(c)

	up, closeFile, err := formUpload(c, true)
	if err != nil {
		writeError(c, err, "failed to create document")
		return
	}
	defer closeFile()

	doc, err := h.Svc.Create(c.Request.Context(), identity, CreateInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
	}, up)
	if err != nil {
		writeError(c, err, "failed to create document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.Created(c, toResponse(doc, Owner{ID: identity.ID, Email: identity.Email}))
}

func (h *Handler) list(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		writeError(c, err, "")
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		writeError(c, err, "")
		return
	}

	docs, err := h.Svc.List(c.Request.Context(), identity, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	respond.OK(c, ListResponse{
		Items:  h.responses(c.Request.Context(), docs),
		Limit:  clampLimit(limit),
		Offset: max(offset, 0),
	})
}

func (h *Handler) get(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	respond.OK(c, toResponse(doc, h.Svc.Owner(c.Request.Context(), doc.OwnerID)))
}

func (h *Handler) update(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	c.Set("documentId", c.Param("id"))
	h.limitBody(c)

	var (
		in  UpdateInput
		up  *Upload
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case "application/json":
		var req updateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		in = UpdateInput{Title: req.Title, Description: req.Description}
	case "multipart/form-data":
		var closeFile func()
		up, closeFile, err = formUpload(c, false)
		if err != nil {
			writeError(c, err, "failed to update document")
			return
		}
		defer closeFile()
		if v, ok := c.GetPostForm("title"); ok {
			in.Title = &v
		}
		if v, ok := c.GetPostForm("description"); ok {
			in.Description = &v
		}
	default:
		respond.Error(c, http.StatusUnsupportedMediaType, "validation_error", "expected multipart/form-data or application/json", nil)
		return
	}

	doc, err := h.Svc.Update(c.Request.Context(), c.Param("id"), identity, in, up)
	if err != nil {
		writeError(c, err, "failed to update document")
		return
	}
	respond.OK(c, toResponse(doc, h.Svc.Owner(c.Request.Context(), doc.OwnerID)))
}

func (h *Handler) remove(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	c.Set("documentId", c.Param("id"))
	if err := h.Svc.Remove(c.Request.Context(), c.Param("id"), identity); err != nil {
		writeError(c, err, "failed to delete document")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) download(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	c.Set("documentId", c.Param("id"))
	doc, rc, err := h.Svc.Open(c.Request.Context(), c.Param("id"), identity)
	if err != nil {
		writeError(c, err, "failed to read document file")
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	c.DataFromReader(http.StatusOK, doc.FileSize, doc.MimeType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *Handler) identity(c *gin.Context) (access.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return access.Identity{}, false
	}
	return identity, true
}

func (h *Handler) limitBody(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
}

// responses resolves each distinct owner once.
func (h *Handler) responses(ctx context.Context, docs []Document) []DocumentResponse {
	owners := make(map[string]Owner)
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		owner, seen := owners[doc.OwnerID]
		if !seen {
			owner = h.Svc.Owner(ctx, doc.OwnerID)
			owners[doc.OwnerID] = owner
		}
		out = append(out, toResponse(doc, owner))
	}
	return out
}

var errTooLarge = errors.New("upload too large")

// formUpload opens the "file" form field. Without required, a missing file
// yields a nil Upload.
func formUpload(c *gin.Context, required bool) (*Upload, func(), error) {
	noop := func() {}
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return nil, noop, errTooLarge
		case errors.Is(err, http.ErrMissingFile) && !required:
			return nil, noop, nil
		default:
			return nil, noop, invalid("file", "required")
		}
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, invalid("file", "unreadable")
	}
	return &Upload{
		FileName:    header.Filename,
		ContentType: partContentType(header),
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func partContentType(header *multipart.FileHeader) string {
	ct := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ""
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(key, "not_integer")
	}
	return v, nil
}

// writeError maps service errors onto the HTTP error envelope.
func writeError(c *gin.Context, err error, internalMsg string) {
	var inputErr *InputError
	switch {
	case errors.Is(err, errTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
	case errors.As(err, &inputErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", inputErr.Field+" "+strings.ReplaceAll(inputErr.Issue, "_", " "), []*InputError{inputErr})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not have access to this document", nil)
	default:
		if internalMsg == "" {
			internalMsg = "internal error"
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", internalMsg, nil)
	}
}
