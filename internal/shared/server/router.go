package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/documents"
	"docs-backend/internal/ingestion"
	"docs-backend/internal/services/health"
	"docs-backend/internal/shared/config"
	"docs-backend/internal/shared/metrics"
	"docs-backend/internal/shared/server/middleware"
	"docs-backend/internal/shared/server/respond"
	"docs-backend/internal/users"
)

// Login and registration are throttled per client IP.
var authRateLimit = middleware.RateLimitRule{Rate: 1, Burst: 10}

// RouterDeps carries the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config           config.Config
	Tokens           middleware.TokenVerifier
	Identities       middleware.IdentityResolver
	Health           *health.Service
	RateLimiter      *middleware.RateLimiter
	UserHandler      *users.Handler
	DocumentHandler  *documents.Handler
	IngestionHandler *ingestion.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil, deps.Config.ObjectStoreType)
	}
	healthHandler := func(c *gin.Context) {
		status, ok := healthSvc.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, status)
			return
		}
		respond.OK(c, status)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)

	if deps.UserHandler != nil {
		public := api.Group("")
		public.Use(middleware.RateLimit(deps.RateLimiter, authRateLimit))
		deps.UserHandler.RegisterPublicRoutes(public)
	}

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.Tokens, deps.Identities))
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(protected)
	}
	if deps.IngestionHandler != nil {
		deps.IngestionHandler.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
