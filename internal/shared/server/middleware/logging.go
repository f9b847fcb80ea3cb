package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docs-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"bytes_out":   c.Writer.Size(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for ctxKey, logKey := range map[string]string{
			userIDKey:     "user_id",
			userRoleKey:   "user_role",
			"documentId":  "document_id",
			"ingestionId": "ingestion_id",
		} {
			if v := c.GetString(ctxKey); v != "" {
				fields[logKey] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
