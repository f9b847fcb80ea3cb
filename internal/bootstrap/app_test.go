package bootstrap_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/bootstrap"
	"docs-backend/internal/shared/config"
)

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		JWTSecret:       "bootstrap-secret",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	app.UsersService.HashCost = 4
	return app
}

func serve(app *bootstrap.App, req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func registerAndLogin(t *testing.T, app *bootstrap.App, email, role string) string {
	t.Helper()
	resp := serve(app, jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"email":     email,
		"password":  "password1",
		"role":      role,
	}), "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d body=%s", email, resp.Code, resp.Body.String())
	}

	resp = serve(app, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": "password1",
	}), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", email, resp.Code)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Token == "" {
		t.Fatalf("decode login: %v %q", err, payload.Token)
	}
	return payload.Token
}

func uploadDocument(t *testing.T, app *bootstrap.App, token, title string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "doc.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("content of " + title)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return serve(app, req, token)
}

func TestRegisterConflictAndBadLogin(t *testing.T) {
	app := buildApp(t)
	registerAndLogin(t, app, "dup@example.com", "editor")

	resp := serve(app, jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"firstName": "Again",
		"lastName":  "User",
		"email":     "DUP@example.com",
		"password":  "password1",
	}), "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	resp = serve(app, jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "dup@example.com",
		"password": "wrong-password",
	}), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestDocumentVisibilityAcrossRoles(t *testing.T) {
	app := buildApp(t)
	editorA := registerAndLogin(t, app, "a@example.com", "editor")
	editorB := registerAndLogin(t, app, "b@example.com", "editor")
	viewer := registerAndLogin(t, app, "v@example.com", "viewer")
	admin := registerAndLogin(t, app, "root@example.com", "admin")

	resp := uploadDocument(t, app, editorA, "alpha")
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload alpha: expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	var alpha struct {
		ID    string `json:"id"`
		Owner struct {
			Email string `json:"email"`
		} `json:"owner"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&alpha); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if alpha.Owner.Email != "a@example.com" {
		t.Fatalf("unexpected owner %q", alpha.Owner.Email)
	}
	if resp := uploadDocument(t, app, editorB, "beta"); resp.Code != http.StatusCreated {
		t.Fatalf("upload beta: expected 201, got %d", resp.Code)
	}
	if resp := uploadDocument(t, app, viewer, "gamma"); resp.Code != http.StatusForbidden {
		t.Fatalf("viewer upload: expected 403, got %d", resp.Code)
	}

	counts := map[string]int{editorA: 1, editorB: 1, viewer: 2, admin: 2}
	for token, want := range counts {
		resp := serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil), token)
		var page struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		if len(page.Items) != want {
			t.Fatalf("expected %d documents, got %d", want, len(page.Items))
		}
	}

	resp = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+alpha.ID, nil), editorB)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign editor view: expected 403, got %d", resp.Code)
	}
	resp = serve(app, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+alpha.ID, nil), viewer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("viewer delete: expected 403, got %d", resp.Code)
	}
	resp = serve(app, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+alpha.ID, nil), admin)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("admin delete: expected 204, got %d", resp.Code)
	}
}

func TestIngestionSubmitAndStatus(t *testing.T) {
	app := buildApp(t)
	token := registerAndLogin(t, app, "ingest@example.com", "viewer")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("file", "vectors.txt")
	_, _ = part.Write([]byte("embed me"))
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/embeddings/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := serve(app, req, token)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", resp.Code, resp.Body.String())
	}
	var submitted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if submitted.Status != "processing" {
		t.Fatalf("expected processing, got %q", submitted.Status)
	}

	resp = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/embeddings/status/"+submitted.ID, nil), token)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "processing") {
		t.Fatalf("status: got %d body=%s", resp.Code, resp.Body.String())
	}
	resp = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/embeddings/status/unknown", nil), token)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown status: expected 404, got %d", resp.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := buildApp(t)

	resp := serve(app, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"database":"memory"`) {
		t.Fatalf("health: got %d body=%s", resp.Code, resp.Body.String())
	}
	resp = serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.Code)
	}
	resp = serve(app, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil), "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: expected 401, got %d", resp.Code)
	}
}
