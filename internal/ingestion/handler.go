package ingestion

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/shared/server/middleware"
	"docs-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the simulator.
type Handler struct {
	Svc            *Simulator
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Simulator, maxUploadBytes int64) *Handler {
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches ingestion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/embeddings/upload", h.upload)
	rg.GET("/embeddings/status/:id", h.status)
	rg.GET("/embeddings/search", h.search)
}

func (h *Handler) upload(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return
	}

	meta, err := formMetadata(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "metadata must be a JSON object", []map[string]string{
			{"field": "metadata", "issue": "invalid_json"},
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.Submit(ctx, FileInfo{Name: header.Filename, MimeType: mimeType, Size: header.Size}, meta)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file name is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to submit document", nil)
		}
		return
	}
	c.Set("ingestionId", rec.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"id":     rec.ID,
		"status": rec.Status,
	})
}

func (h *Handler) status(c *gin.Context) {
	id := c.Param("id")
	rec, err := h.Svc.Status(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "ingestion id is required", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "No ingestion found with id: "+id, nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch ingestion", nil)
		}
		return
	}
	c.Set("ingestionId", rec.ID)
	respond.OK(c, rec)
}

func (h *Handler) search(c *gin.Context) {
	limit := DefaultSearchLimit
	if v, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer", []map[string]string{
				{"field": "limit", "issue": "invalid"},
			})
			return
		}
		limit = parsed
	}
	results := h.Svc.Search(c.Request.Context(), c.Query("query"), limit)
	respond.OK(c, results)
}

// formMetadata collects the non-file form fields. A "metadata" field holding a
// JSON object is flattened into the result; later keys win.
func formMetadata(c *gin.Context) (map[string]any, error) {
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}
	meta := make(map[string]any)
	var raw string
	for key, vals := range form.Value {
		if len(vals) == 0 {
			continue
		}
		if key == "metadata" {
			raw = vals[0]
			continue
		}
		if len(vals) == 1 {
			meta[key] = vals[0]
		} else {
			meta[key] = vals
		}
	}
	if strings.TrimSpace(raw) != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return nil, err
		}
		for k, v := range obj {
			meta[k] = v
		}
	}
	return meta, nil
}
