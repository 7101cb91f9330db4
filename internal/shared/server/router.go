package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/shared/config"
	"companion-backend/internal/shared/metrics"
	"companion-backend/internal/shared/ratelimit"
	"companion-backend/internal/shared/server/middleware"
	"companion-backend/internal/shared/server/respond"
	localstore "companion-backend/internal/shared/storage/object/local"
)

// FunctionsPath is the group every function is mounted under.
const FunctionsPath = "/functions/v1"

// RouteRegistrar attaches a set of functions to the functions group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries what NewRouter wires.
type RouterDeps struct {
	Config     config.Config
	Limiter    ratelimit.Limiter
	LocalStore *localstore.Store
	Handlers   []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowHeaders),
	)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	if deps.LocalStore != nil {
		r.Static(localstore.PublicPath, deps.LocalStore.Dir())
	}

	fn := r.Group(FunctionsPath)
	if cfg.RateLimitPerMin > 0 {
		limits := middleware.RateLimitConfig{
			Rules:   map[string]ratelimit.Rule{middleware.DefaultGroup: ratelimit.PerMinute(cfg.RateLimitPerMin)},
			Limiter: deps.Limiter,
		}
		if cfg.UploadRateLimitPerMin > 0 {
			limits.Rules[middleware.UploadGroup] = ratelimit.PerMinute(cfg.UploadRateLimitPerMin)
			limits.GroupFor = middleware.UploadsGroup
		}
		fn.Use(middleware.RateLimit(limits))
	}
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(fn)
		}
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
