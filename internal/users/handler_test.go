package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"docs-backend/internal/shared/auth"
	"docs-backend/internal/shared/server/middleware"
)

func setupUsersRouter(t *testing.T) (*gin.Engine, *auth.Issuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryRepo())
	svc.HashCost = bcrypt.MinCost
	issuer, err := auth.NewIssuer("users-secret", time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	h := NewHandler(svc, issuer)

	router := gin.New()
	api := router.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.Auth(issuer, svc))
	h.RegisterRoutes(protected)
	return router, issuer
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	router, _ := setupUsersRouter(t)

	resp := postJSON(t, router, "/api/v1/auth/register", map[string]string{
		"firstName": "Grace",
		"lastName":  "Hopper",
		"email":     "grace@example.com",
		"password":  "cobol1959",
		"role":      "editor",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", resp.Code, resp.Body.String())
	}
	var registered map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		t.Fatalf("decode register: %v", err)
	}
	if registered["role"] != "editor" || registered["email"] != "grace@example.com" {
		t.Fatalf("unexpected register response %v", registered)
	}
	if _, leaked := registered["passwordHash"]; leaked {
		t.Fatalf("password hash must not be returned")
	}

	resp = postJSON(t, router, "/api/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "cobol1959",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.Token == "" || login.User.ID != registered["id"] || login.User.Role != "editor" {
		t.Fatalf("unexpected login response %+v", login)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	meResp := httptest.NewRecorder()
	router.ServeHTTP(meResp, req)
	if meResp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", meResp.Code)
	}
	var me map[string]any
	if err := json.NewDecoder(meResp.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me["firstName"] != "Grace" || me["id"] != registered["id"] {
		t.Fatalf("unexpected /me response %v", me)
	}
	if _, leaked := me["passwordHash"]; leaked {
		t.Fatalf("password hash must not be returned")
	}
}

func TestRegisterConflict(t *testing.T) {
	router, _ := setupUsersRouter(t)
	payload := map[string]string{
		"firstName": "Grace",
		"lastName":  "Hopper",
		"email":     "grace@example.com",
		"password":  "cobol1959",
	}
	if resp := postJSON(t, router, "/api/v1/auth/register", payload); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	resp := postJSON(t, router, "/api/v1/auth/register", payload)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestRegisterValidationDetails(t *testing.T) {
	router, _ := setupUsersRouter(t)
	resp := postJSON(t, router, "/api/v1/auth/register", map[string]string{
		"email":    "nope",
		"password": "short",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string       `json:"code"`
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "validation_error" || len(body.Error.Details) != 4 {
		t.Fatalf("unexpected error body %+v", body.Error)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := setupUsersRouter(t)
	postJSON(t, router, "/api/v1/auth/register", map[string]string{
		"firstName": "Grace",
		"lastName":  "Hopper",
		"email":     "grace@example.com",
		"password":  "cobol1959",
	})

	resp := postJSON(t, router, "/api/v1/auth/login", map[string]string{
		"email":    "grace@example.com",
		"password": "fortran57",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	resp = postJSON(t, router, "/api/v1/auth/login", map[string]string{"email": "grace@example.com"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", resp.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	router, issuer := setupUsersRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	// a valid signature for a user that does not exist
	token, err := issuer.Sign(auth.Claims{Sub: "ghost", Role: "admin"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown subject, got %d", resp.Code)
	}
}

func TestRegisterMultibytePasswordOverByteLimit(t *testing.T) {
	router, _ := setupUsersRouter(t)

	resp := postJSON(t, router, "/api/v1/auth/register", map[string]string{
		"firstName": "Emoji",
		"lastName":  "User",
		"email":     "emoji@example.com",
		"password":  strings.Repeat("😀", 20),
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"too_long"`) {
		t.Fatalf("expected password too_long detail, got %s", resp.Body.String())
	}
}
