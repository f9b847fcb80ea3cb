package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/access"
	"docs-backend/internal/shared/auth"
	"docs-backend/internal/shared/server/middleware"
)

type identityTable map[string]access.Identity

func (t identityTable) Identity(_ context.Context, id string) (access.Identity, error) {
	identity, ok := t[id]
	if !ok {
		return access.Identity{}, errors.New("unknown user")
	}
	return identity, nil
}

type testServer struct {
	router *gin.Engine
	svc    *Service
	tokens map[string]string
}

func setupDocumentsRouter(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := auth.NewIssuer("documents-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	svc := newTestService(t)
	table := identityTable{}
	tokens := map[string]string{}
	for _, id := range []access.Identity{admin, editor, editor2, viewer} {
		table[id.ID] = id
		token, err := issuer.Sign(auth.Claims{Sub: id.ID, Email: id.Email, Role: string(id.Role)})
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		tokens[id.ID] = token
	}

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(issuer, table))
	NewHandler(svc, maxUpload).RegisterRoutes(api)
	return &testServer{router: router, svc: svc, tokens: tokens}
}

func (s *testServer) do(t *testing.T, who access.Identity, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if who.ID != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[who.ID])
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeDocument(t *testing.T, body io.Reader) DocumentResponse {
	t.Helper()
	var doc DocumentResponse
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestCreateGetDownloadDelete(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)

	req := multipartRequest(t, http.MethodPost, "/api/v1/documents", map[string]string{
		"title":       "Handbook",
		"description": "team handbook",
	}, "handbook.txt", "hello world")
	resp := s.do(t, editor, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	created := decodeDocument(t, resp.Body)
	if created.ID == "" || created.Owner.ID != editor.ID || created.Owner.Email != editor.Email {
		t.Fatalf("unexpected create response %+v", created)
	}
	if created.FileURL != "/api/v1/documents/"+created.ID+"/file" {
		t.Fatalf("unexpected fileUrl %q", created.FileURL)
	}
	if !strings.HasPrefix(created.MimeType, "text/plain") {
		t.Fatalf("expected sniffed text/plain, got %q", created.MimeType)
	}

	resp = s.do(t, viewer, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("viewer get: expected 200, got %d", resp.Code)
	}

	resp = s.do(t, editor, httptest.NewRequest(http.MethodGet, created.FileURL, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != "hello world" {
		t.Fatalf("unexpected file body %q", resp.Body.String())
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "handbook.txt") {
		t.Fatalf("unexpected Content-Disposition %q", cd)
	}

	resp = s.do(t, editor, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+created.ID, nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.Code)
	}
	resp = s.do(t, editor, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.ID, nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.Code)
	}
}

func TestCreateRequiresTitleAndFile(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)

	resp := s.do(t, editor, multipartRequest(t, http.MethodPost, "/api/v1/documents", nil, "a.txt", "x"))
	if resp.Code != http.StatusBadRequest || errorCode(t, resp.Body) != "validation_error" {
		t.Fatalf("missing title: expected 400 validation_error, got %d", resp.Code)
	}

	resp = s.do(t, editor, multipartRequest(t, http.MethodPost, "/api/v1/documents", map[string]string{"title": "t"}, "", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", resp.Code)
	}
}

func TestCreateForbiddenForViewerHTTP(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)
	resp := s.do(t, viewer, multipartRequest(t, http.MethodPost, "/api/v1/documents", map[string]string{"title": "t"}, "a.txt", "x"))
	if resp.Code != http.StatusForbidden || errorCode(t, resp.Body) != "forbidden" {
		t.Fatalf("expected 403 forbidden, got %d", resp.Code)
	}
}

func TestCreateTooLarge(t *testing.T) {
	s := setupDocumentsRouter(t, 64)
	resp := s.do(t, editor, multipartRequest(t, http.MethodPost, "/api/v1/documents", map[string]string{"title": "big"}, "big.txt", strings.Repeat("x", 4096)))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestListScopedAndPaged(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)
	mustCreate(t, s.svc, editor, "mine")
	mustCreate(t, s.svc, editor2, "theirs")

	resp := s.do(t, editor, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var page ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Owner.ID != editor.ID || page.Limit != 0 {
		t.Fatalf("unexpected editor page %+v", page)
	}

	resp = s.do(t, admin, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=1&offset=1", nil))
	page = ListResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(page.Items) != 1 || page.Limit != 1 || page.Offset != 1 {
		t.Fatalf("unexpected admin page %+v", page)
	}

	resp = s.do(t, admin, httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=abc", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", resp.Code)
	}
}

func TestUpdateJSONAndMultipart(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)
	doc := mustCreate(t, s.svc, editor, "draft")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+doc.ID, strings.NewReader(`{"description":"reviewed"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := s.do(t, editor, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("json patch: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	updated := decodeDocument(t, resp.Body)
	if updated.Title != "draft" || updated.Description != "reviewed" {
		t.Fatalf("unexpected json patch result %+v", updated)
	}

	req = multipartRequest(t, http.MethodPatch, "/api/v1/documents/"+doc.ID, map[string]string{"title": "final"}, "v2.txt", "second")
	resp = s.do(t, editor, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("multipart patch: expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
	updated = decodeDocument(t, resp.Body)
	if updated.Title != "final" || updated.FileName != "v2.txt" || updated.Description != "reviewed" {
		t.Fatalf("unexpected multipart patch result %+v", updated)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+doc.ID, strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp = s.do(t, editor2, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("other editor patch: expected 403, got %d", resp.Code)
	}
}

func TestDocumentsRequireToken(t *testing.T) {
	s := setupDocumentsRouter(t, 1<<20)
	resp := s.do(t, access.Identity{}, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
