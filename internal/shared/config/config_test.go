package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaultsWithMemoryBackends(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "memory")
	t.Setenv("RECORD_STORE", "memory")
	t.Setenv("OBJECT_STORE", "Memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.ObjectStore != BackendMemory {
		t.Fatalf("expected normalized object store, got %q", cfg.ObjectStore)
	}
	want := []string{"authorization", "x-client-info", "apikey", "content-type"}
	if len(cfg.CORSAllowHeaders) != len(want) {
		t.Fatalf("unexpected allow headers: %v", cfg.CORSAllowHeaders)
	}
	for i := range want {
		if cfg.CORSAllowHeaders[i] != want[i] {
			t.Fatalf("allow header %d = %q, want %q", i, cfg.CORSAllowHeaders[i], want[i])
		}
	}
}

func TestLoadRequiresPlatformURL(t *testing.T) {
	t.Setenv("AUTH_PROVIDER", "rest")
	t.Setenv("SUPABASE_URL", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingRequiredEnvVar) {
		t.Fatalf("expected missing env error, got %v", err)
	}
}

func TestBucketFallbacks(t *testing.T) {
	cfg := Config{}
	if got := cfg.BannerBucket(); got != "banners" {
		t.Fatalf("BannerBucket = %q", got)
	}
	if got := cfg.AvatarBucket(); got != "avatars" {
		t.Fatalf("AvatarBucket = %q", got)
	}
	if got := cfg.ProfilePictureBucket(); got != "profile-pics" {
		t.Fatalf("ProfilePictureBucket = %q", got)
	}

	cfg.Buckets.Storage = "shared"
	if got := cfg.BannerBucket(); got != "shared" {
		t.Fatalf("BannerBucket with STORAGE_BUCKET = %q", got)
	}
	cfg.Buckets.Banner = "hero"
	if got := cfg.BannerBucket(); got != "hero" {
		t.Fatalf("BannerBucket with BANNER_BUCKET = %q", got)
	}
}

func TestValidateJWTNeedsSecret(t *testing.T) {
	cfg := Config{AuthProvider: BackendJWT, RecordStore: BackendMemory, ObjectStore: BackendMemory}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingRequiredEnvVar) {
		t.Fatalf("expected missing secret, got %v", err)
	}
	cfg.Supabase.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
