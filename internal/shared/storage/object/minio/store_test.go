package minio

import (
	"context"
	"strings"
	"testing"

	"companion-backend/internal/platform"
)

func TestNew_InvalidEndpoint(t *testing.T) {
	_, err := New(Config{Endpoint: "invalid-endpoint:port:scheme", AccessKey: "minio", SecretKey: "minio123"})
	if err == nil {
		t.Fatal("expected error with invalid endpoint, got nil")
	}
}

func TestPublicURL(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000", AccessKey: "minio", SecretKey: "minio123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.PublicURL("user-banners", "u1/1-a.png"); got != "http://localhost:9000/user-banners/u1/1-a.png" {
		t.Fatalf("unexpected url %q", got)
	}

	s, err = New(Config{Endpoint: "minio:9000", UseSSL: true, PublicBase: "https://cdn.example.com/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.PublicURL("b", "k"); got != "https://cdn.example.com/b/k" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestUpload_ForbiddenBeforeNetwork(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:12345", AccessKey: "minio", SecretKey: "minio123"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	caller := platform.Caller(platform.Identity{UserID: "u1", Token: "t"})
	err = s.Upload(context.Background(), caller, "b", "u2/x.png", platform.Object{Body: strings.NewReader("x"), Size: 1})
	if !platform.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPublicReadPolicy(t *testing.T) {
	p := publicReadPolicy("avatars")
	if !strings.Contains(p, "arn:aws:s3:::avatars/*") || !strings.Contains(p, `"s3:GetObject"`) {
		t.Fatalf("unexpected policy %s", p)
	}
}
