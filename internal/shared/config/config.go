package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrMissingRequiredEnvVar = errors.New("missing required environment variable")

// Backend selectors.
const (
	BackendREST     = "rest"
	BackendJWT      = "jwt"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendS3       = "s3"
	BackendMinIO    = "minio"
	BackendLocal    = "local"
)

// Config holds application configuration. It is built once at startup and
// passed to every component that needs it.
type Config struct {
	Port             string        `env:"PORT" envDefault:"8080"`
	Env              string        `env:"ENV" envDefault:"dev"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSAllowHeaders []string      `env:"CORS_ALLOW_HEADERS" envDefault:"authorization,x-client-info,apikey,content-type" envSeparator:","`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	RedisURL         string        `env:"REDIS_URL"`

	UploadRateLimitPerMin int `env:"UPLOAD_RATE_LIMIT_PER_MINUTE" envDefault:"20"`

	AuthProvider string `env:"AUTH_PROVIDER" envDefault:"rest"`
	RecordStore  string `env:"RECORD_STORE" envDefault:"rest"`
	ObjectStore  string `env:"OBJECT_STORE" envDefault:"rest"`

	Supabase Supabase `envPrefix:"SUPABASE_"`
	Buckets  Buckets
	S3       S3       `envPrefix:"S3_"`
	MinIO    MinIO    `envPrefix:"MINIO_"`

	DatabaseURL   string `env:"DATABASE_URL"`
	LocalStoreDir string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
}

// Supabase holds the hosted platform endpoint and keys.
type Supabase struct {
	URL            string `env:"URL"`
	ServiceRoleKey string `env:"SERVICE_ROLE_KEY"`
	AnonKey        string `env:"ANON_KEY"`
	JWTSecret      string `env:"JWT_SECRET"`
}

// Buckets names the bucket of each media kind. Empty per-kind names fall
// back to STORAGE_BUCKET, then to the kind default.
type Buckets struct {
	Storage        string `env:"STORAGE_BUCKET"`
	Avatar         string `env:"AVATAR_BUCKET"`
	Banner         string `env:"BANNER_BUCKET"`
	ProfilePicture string `env:"PROFILE_PIC_BUCKET"`
	CompanionImage string `env:"COMPANION_IMAGE_BUCKET" envDefault:"companion-images"`
}

// S3 configures the S3-compatible object store.
type S3 struct {
	Region     string `env:"REGION" envDefault:"us-east-1"`
	Bucket     string `env:"BUCKET"`
	Prefix     string `env:"PREFIX"`
	Endpoint   string `env:"ENDPOINT"`
	AccessKey  string `env:"ACCESS_KEY"`
	SecretKey  string `env:"SECRET_KEY"`
	PublicBase string `env:"PUBLIC_BASE"`
}

// MinIO configures the MinIO object store.
type MinIO struct {
	Endpoint   string `env:"ENDPOINT"`
	AccessKey  string `env:"ACCESS_KEY"`
	SecretKey  string `env:"SECRET_KEY"`
	UseSSL     bool   `env:"USE_SSL"`
	PublicBase string `env:"PUBLIC_BASE"`
}

// Load reads configuration from the environment. A .env file is honored in
// development.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse reads and normalizes the environment without checking that the
// selected backends are fully configured. Tools that only need a subset,
// such as the migrator, use it directly.
func Parse() (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error getting env configs: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.AuthProvider = strings.ToLower(strings.TrimSpace(c.AuthProvider))
	c.RecordStore = strings.ToLower(strings.TrimSpace(c.RecordStore))
	c.ObjectStore = strings.ToLower(strings.TrimSpace(c.ObjectStore))
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// Validate reports the first missing setting required by the selected backends.
func (c Config) Validate() error {
	needsPlatform := c.AuthProvider == BackendREST || c.RecordStore == BackendREST || c.ObjectStore == BackendREST
	if needsPlatform {
		if c.Supabase.URL == "" {
			return fmt.Errorf("%w: SUPABASE_URL", ErrMissingRequiredEnvVar)
		}
		if c.Supabase.AnonKey == "" {
			return fmt.Errorf("%w: SUPABASE_ANON_KEY", ErrMissingRequiredEnvVar)
		}
	}
	if c.Supabase.ServiceRoleKey == "" && c.Env == "production" {
		return fmt.Errorf("%w: SUPABASE_SERVICE_ROLE_KEY", ErrMissingRequiredEnvVar)
	}
	if c.RecordStore == BackendREST && c.Supabase.ServiceRoleKey == "" {
		return fmt.Errorf("%w: SUPABASE_SERVICE_ROLE_KEY", ErrMissingRequiredEnvVar)
	}

	switch c.AuthProvider {
	case BackendREST, BackendMemory:
	case BackendJWT:
		if c.Supabase.JWTSecret == "" {
			return fmt.Errorf("%w: SUPABASE_JWT_SECRET", ErrMissingRequiredEnvVar)
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.RecordStore {
	case BackendREST, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingRequiredEnvVar)
		}
	default:
		return fmt.Errorf("unknown RECORD_STORE %q", c.RecordStore)
	}

	switch c.ObjectStore {
	case BackendREST, BackendMemory, BackendLocal:
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%w: S3_BUCKET", ErrMissingRequiredEnvVar)
		}
	case BackendMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("%w: MINIO_ENDPOINT", ErrMissingRequiredEnvVar)
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStore)
	}
	return nil
}

// AvatarBucket resolves AVATAR_BUCKET, then STORAGE_BUCKET, then "avatars".
func (c Config) AvatarBucket() string {
	return firstNonEmpty(c.Buckets.Avatar, c.Buckets.Storage, "avatars")
}

// BannerBucket resolves BANNER_BUCKET, then STORAGE_BUCKET, then "banners".
func (c Config) BannerBucket() string {
	return firstNonEmpty(c.Buckets.Banner, c.Buckets.Storage, "banners")
}

// ProfilePictureBucket resolves PROFILE_PIC_BUCKET, then STORAGE_BUCKET, then "profile-pics".
func (c Config) ProfilePictureBucket() string {
	return firstNonEmpty(c.Buckets.ProfilePicture, c.Buckets.Storage, "profile-pics")
}

// CompanionImageBucket resolves COMPANION_IMAGE_BUCKET.
func (c Config) CompanionImageBucket() string {
	return firstNonEmpty(c.Buckets.CompanionImage, "companion-images")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
