package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/access"
	"docs-backend/internal/shared/auth"
	"docs-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
	identityKey  = "identity"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// IdentityResolver loads the current identity for a token subject.
type IdentityResolver interface {
	Identity(ctx context.Context, userID string) (access.Identity, error)
}

// Auth requires a valid bearer token and stores the caller identity in
// context. With a resolver, the identity is re-read on every request so
// deleted users and role changes take effect before the token expires.
func Auth(verifier TokenVerifier, resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		identity := access.Identity{ID: claims.Sub, Email: claims.Email, Role: access.Role(claims.Role)}
		if resolver != nil {
			identity, err = resolver.Identity(c.Request.Context(), claims.Sub)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
		}
		if !identity.Role.Valid() {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(userIDKey, identity.ID)
		c.Set(userEmailKey, identity.Email)
		c.Set(userRoleKey, string(identity.Role))
		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFromContext fetches the identity set by the auth middleware.
func IdentityFromContext(c *gin.Context) (access.Identity, bool) {
	if c == nil {
		return access.Identity{}, false
	}
	val, ok := c.Get(identityKey)
	if !ok {
		return access.Identity{}, false
	}
	identity, ok := val.(access.Identity)
	return identity, ok
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}
