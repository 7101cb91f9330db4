package respond

import (
	"github.com/gin-gonic/gin"

	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/telemetry"
)

// Failure is the error envelope.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Fail logs and sends a failure envelope.
func Fail(c *gin.Context, status int, message string) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, Failure{Success: false, Error: message})
}

// Error sends err as a failure envelope, using its apperr status or 500.
func Error(c *gin.Context, err error) {
	Fail(c, apperr.StatusOf(err), err.Error())
}
