package jwtauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"companion-backend/internal/platform"
)

func TestSignAndResolve(t *testing.T) {
	v, err := New("test-secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := v.Sign("user-1", "a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	id, err := v.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.UserID != "user-1" || id.Email != "a@example.com" || id.Token != token {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	a, _ := New("secret-a")
	b, _ := New("secret-b")
	token, err := a.Sign("user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := b.Resolve(context.Background(), token); !errors.Is(err, platform.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveRejectsExpired(t *testing.T) {
	v, _ := New("secret")
	v.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := v.Sign("user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	v.now = time.Now
	if _, err := v.Resolve(context.Background(), token); !errors.Is(err, platform.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveRejectsForeignAudience(t *testing.T) {
	v, _ := New("secret")
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"service"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Resolve(context.Background(), token); !errors.Is(err, platform.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestResolveRejectsGarbage(t *testing.T) {
	v, _ := New("secret")
	if _, err := v.Resolve(context.Background(), "not.a.jwt"); !errors.Is(err, platform.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(" "); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
