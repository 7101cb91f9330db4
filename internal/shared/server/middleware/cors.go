package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows any origin with the given request headers on every response,
// and answers preflight requests with an empty 200.
func CORS(allowHeaders []string) gin.HandlerFunc {
	var cleaned []string
	for _, h := range allowHeaders {
		if trimmed := strings.TrimSpace(h); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	headers := strings.Join(cleaned, ", ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusOK)
			c.Abort()
			return
		}

		c.Next()
	}
}
