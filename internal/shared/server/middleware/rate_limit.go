package middleware

import (
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/shared/metrics"
	"companion-backend/internal/shared/ratelimit"
	"companion-backend/internal/shared/util"
)

// Rate limit groups.
const (
	DefaultGroup = "DEFAULT"
	UploadGroup  = "UPLOAD"
)

type RateLimitConfig struct {
	Rules        map[string]ratelimit.Rule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      ratelimit.Limiter
}

// UploadsGroup puts the upload-* functions in UploadGroup and leaves the
// rest to the default group.
func UploadsGroup(c *gin.Context) string {
	if strings.HasPrefix(path.Base(c.FullPath()), "upload-") {
		return UploadGroup
	}
	return ""
}

// RateLimit rejects requests over the group rule with 429. It runs before
// the bearer is resolved, so requests are bucketed by client IP. Preflights
// and groups without a rule pass through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewMemory(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = DefaultGroup
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		allowed, wait := cfg.Limiter.Allow(c.Request.Context(), util.LimiterKey(c.ClientIP(), group), rule)
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited()
		waitMs, waitSeconds := retryAfter(wait)
		c.Header("Retry-After", strconv.Itoa(waitSeconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success":      false,
			"error":        "Too many requests",
			"retryAfterMs": waitMs,
		})
	}
}

// retryAfter rounds a limiter wait to whole milliseconds and up to whole
// seconds, never below one second.
func retryAfter(wait time.Duration) (int, int) {
	if wait < time.Second {
		wait = time.Second
	}
	ms := int(wait.Milliseconds())
	return ms, (ms + 999) / 1000
}
