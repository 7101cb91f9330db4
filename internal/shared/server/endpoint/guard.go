// Package endpoint applies the request contract every function shares:
// preflight, method check and bearer resolution, in that order.
package endpoint

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/platform"
	"companion-backend/internal/shared/apperr"
	"companion-backend/internal/shared/metrics"
	"companion-backend/internal/shared/server/middleware"
	"companion-backend/internal/shared/server/respond"
	"companion-backend/internal/shared/telemetry"
)

// Func handles a request whose caller has been resolved.
type Func func(c *gin.Context, caller platform.Identity)

// Guard resolves callers for function handlers.
type Guard struct {
	Auth       platform.Authenticator
	ServiceKey string
}

// Authenticated wraps fn with the caller contract. Routes must be registered
// with Any so preflight and disallowed methods reach the guard.
func (g Guard) Authenticated(methods []string, fn Func) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !preflight(c, methods) {
			return
		}
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok || g.Auth == nil {
			reject(c, "missing bearer token")
			return
		}
		caller, err := g.Auth.Resolve(c.Request.Context(), token)
		if err != nil || caller.UserID == "" {
			reject(c, errString(err))
			return
		}
		middleware.SetIdentity(c, caller.UserID)
		fn(c, caller)
	}
}

// Admin wraps fn for setup operations. The bearer must be the service-role key.
func (g Guard) Admin(methods []string, fn func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !preflight(c, methods) {
			return
		}
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok || g.ServiceKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(g.ServiceKey)) != 1 {
			reject(c, "bearer is not the service role key")
			return
		}
		fn(c)
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func preflight(c *gin.Context, methods []string) bool {
	if c.Request.Method == http.MethodOptions {
		c.Status(http.StatusOK)
		c.Abort()
		return false
	}
	for _, m := range methods {
		if c.Request.Method == m {
			return true
		}
	}
	respond.Error(c, apperr.ErrMethodNotAllowed)
	return false
}

func reject(c *gin.Context, reason string) {
	metrics.IncUnauthorized()
	telemetry.Warn("auth.rejected", map[string]any{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString("requestId"),
		"reason":     reason,
	})
	respond.Error(c, apperr.ErrUnauthorized)
}

func errString(err error) string {
	if err == nil {
		return "empty identity"
	}
	return err.Error()
}
