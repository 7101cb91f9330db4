package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/shared/metrics"
	"companion-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request and records its duration.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		durationMs := float64(latency.Microseconds()) / 1000.0
		status := c.Writer.Status()

		metrics.ObserveFunctionCall(c.FullPath(), status, durationMs)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": durationMs,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if objectKey := ObjectKeyFromContext(c); objectKey != "" {
			fields["object_key"] = objectKey
		}
		telemetry.Info("request.complete", fields)
	}
}
