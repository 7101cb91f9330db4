package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"companion-backend/internal/chat"
	"companion-backend/internal/companions"
	"companion-backend/internal/matches"
	"companion-backend/internal/media"
	"companion-backend/internal/platform"
	"companion-backend/internal/platform/jwtauth"
	"companion-backend/internal/platform/memory"
	"companion-backend/internal/platform/pg"
	"companion-backend/internal/platform/rest"
	"companion-backend/internal/profiles"
	"companion-backend/internal/setup"
	"companion-backend/internal/shared/config"
	"companion-backend/internal/shared/ratelimit"
	"companion-backend/internal/shared/server"
	"companion-backend/internal/shared/server/endpoint"
	"companion-backend/internal/shared/storage/db"
	localstore "companion-backend/internal/shared/storage/object/local"
	miniostore "companion-backend/internal/shared/storage/object/minio"
	s3store "companion-backend/internal/shared/storage/object/s3"
	"companion-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config  config.Config
	Router  *gin.Engine
	DB      *sql.DB
	Backend platform.Backend
	Limiter ratelimit.Limiter
	Local   *localstore.Store

	MediaHandler     *media.Handler
	ProfileHandler   *profiles.Handler
	ChatHandler      *chat.Handler
	MatchHandler     *matches.Handler
	CompanionHandler *companions.Handler
	SetupHandler     *setup.Handler
}

// Build selects the backends named in cfg and wires every function handler.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, platform.Backend{})
}

// BuildWith is Build with preset collaborators. Non-nil fields of preset
// replace the configured backend.
func BuildWith(cfg config.Config, preset platform.Backend) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg}

	var client *rest.Client
	restClient := func() (*rest.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := rest.New(rest.Config{
			URL:        cfg.Supabase.URL,
			ServiceKey: cfg.Supabase.ServiceRoleKey,
			AnonKey:    cfg.Supabase.AnonKey,
			Timeout:    cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		client = c
		return client, nil
	}

	backend := preset
	if backend.Auth == nil {
		auth, err := buildAuth(cfg, restClient)
		if err != nil {
			return nil, err
		}
		backend.Auth = auth
	}
	if backend.Records == nil {
		records, sqlDB, err := buildRecords(ctx, cfg, restClient)
		if err != nil {
			return nil, err
		}
		backend.Records = records
		app.DB = sqlDB
	}
	if backend.Objects == nil {
		objects, err := buildObjects(ctx, cfg, restClient)
		if err != nil {
			return nil, err
		}
		backend.Objects = objects
	}
	if local, ok := backend.Objects.(*localstore.Store); ok {
		app.Local = local
	}
	app.Backend = backend
	app.Limiter = buildLimiter(ctx, cfg)

	buildHandlers(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     cfg,
		Limiter:    app.Limiter,
		LocalStore: app.Local,
		Handlers: []server.RouteRegistrar{
			app.MediaHandler,
			app.ProfileHandler,
			app.ChatHandler,
			app.MatchHandler,
			app.CompanionHandler,
			app.SetupHandler,
		},
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"auth":         cfg.AuthProvider,
		"record_store": cfg.RecordStore,
		"object_store": cfg.ObjectStore,
	})
	return app, nil
}

func buildAuth(cfg config.Config, restClient func() (*rest.Client, error)) (platform.Authenticator, error) {
	switch cfg.AuthProvider {
	case config.BackendJWT:
		return jwtauth.New(cfg.Supabase.JWTSecret)
	case config.BackendMemory:
		return memory.NewAuthenticator(), nil
	case config.BackendREST, "":
		c, err := restClient()
		if err != nil {
			return nil, err
		}
		return c.Backend().Auth, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}

func buildRecords(ctx context.Context, cfg config.Config, restClient func() (*rest.Client, error)) (platform.Records, *sql.DB, error) {
	switch cfg.RecordStore {
	case config.BackendPostgres:
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg.New(sqlDB), sqlDB, nil
	case config.BackendMemory:
		return memory.NewRecords(), nil, nil
	case config.BackendREST, "":
		c, err := restClient()
		if err != nil {
			return nil, nil, err
		}
		return c.Backend().Records, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

func buildObjects(ctx context.Context, cfg config.Config, restClient func() (*rest.Client, error)) (platform.Objects, error) {
	switch cfg.ObjectStore {
	case config.BackendS3:
		return s3store.New(ctx, s3store.Config{
			Region:     cfg.S3.Region,
			Bucket:     cfg.S3.Bucket,
			Prefix:     cfg.S3.Prefix,
			Endpoint:   cfg.S3.Endpoint,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			PublicBase: cfg.S3.PublicBase,
		})
	case config.BackendMinIO:
		return miniostore.New(miniostore.Config{
			Endpoint:   cfg.MinIO.Endpoint,
			AccessKey:  cfg.MinIO.AccessKey,
			SecretKey:  cfg.MinIO.SecretKey,
			UseSSL:     cfg.MinIO.UseSSL,
			PublicBase: cfg.MinIO.PublicBase,
		})
	case config.BackendLocal:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL), nil
	case config.BackendMemory:
		return memory.NewObjects(cfg.PublicBaseURL), nil
	case config.BackendREST, "":
		c, err := restClient()
		if err != nil {
			return nil, err
		}
		return c.Backend().Objects, nil
	default:
		return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}

// buildLimiter prefers Redis when configured and reachable.
func buildLimiter(ctx context.Context, cfg config.Config) ratelimit.Limiter {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemory(nil)
	}
	limiter, err := ratelimit.NewRedis(cfg.RedisURL)
	if err != nil {
		telemetry.Warn("bootstrap.redis_invalid", map[string]any{"error": err.Error()})
		return ratelimit.NewMemory(nil)
	}
	if err := limiter.Ping(ctx); err != nil {
		telemetry.Warn("bootstrap.redis_unreachable", map[string]any{"error": err.Error()})
		_ = limiter.Close()
		return ratelimit.NewMemory(nil)
	}
	return limiter
}

func buildHandlers(app *App) {
	cfg := app.Config
	records := app.Backend.Records
	guard := endpoint.Guard{Auth: app.Backend.Auth, ServiceKey: cfg.Supabase.ServiceRoleKey}

	app.MediaHandler = media.NewHandler(media.NewService(records, app.Backend.Objects), media.KindsFromConfig(cfg), guard)
	app.ProfileHandler = profiles.NewHandler(profiles.NewService(records), guard)
	app.ChatHandler = chat.NewHandler(chat.NewService(records), guard)
	app.MatchHandler = matches.NewHandler(matches.NewService(records), guard)
	app.CompanionHandler = companions.NewHandler(companions.NewService(records), guard)
	app.SetupHandler = setup.NewHandler(setup.NewService(records, app.Backend.Objects, cfg), guard)
}

// Close releases the database pool and rate limiter connections.
func (a *App) Close() error {
	if closer, ok := a.Limiter.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		return a.DB.Close()
	}
	return nil
}
