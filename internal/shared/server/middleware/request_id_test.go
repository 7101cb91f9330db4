package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func requestIDRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) {
		*seen = RequestIDFromContext(c)
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequestIDEchoesCallerToken(t *testing.T) {
	var seen string
	router := requestIDRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "edge-1234:abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if seen != "edge-1234:abc" || resp.Header().Get("X-Request-Id") != "edge-1234:abc" {
		t.Fatalf("expected caller id to be kept, got %q / %q", seen, resp.Header().Get("X-Request-Id"))
	}
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	for name, value := range map[string]string{
		"spaces":   "a b",
		"newline":  "abc\r\ninjected",
		"too long": strings.Repeat("a", 129),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			router := requestIDRouter(&seen)

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header["X-Request-Id"] = []string{value}
			router.ServeHTTP(httptest.NewRecorder(), req)

			if seen == value || len(seen) != 36 {
				t.Fatalf("expected generated uuid, got %q", seen)
			}
		})
	}
}

func TestRecoveryLeavesWrittenResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery())
	router.GET("/half", func(c *gin.Context) {
		c.String(http.StatusAccepted, "partial")
		panic("late")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/half", nil))
	if resp.Code != http.StatusAccepted || resp.Body.String() != "partial" {
		t.Fatalf("expected original response, got %d %q", resp.Code, resp.Body.String())
	}
}
