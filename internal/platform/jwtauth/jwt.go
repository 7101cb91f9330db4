// Package jwtauth resolves bearer tokens locally by verifying their HS256
// signature with the project JWT secret, without a round trip to /auth/v1.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"companion-backend/internal/platform"
)

// Audience is the aud claim carried by signed-in user tokens.
const Audience = "authenticated"

// Claims represents the identity contained in an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var errMissingSecret = errors.New("jwt secret not configured")

// Verifier implements platform.Authenticator.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// New returns a verifier for secret.
func New(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	return &Verifier{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for userID that Resolve accepts. ttl defaults to 24h.
func (v *Verifier) Sign(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("sub is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := v.now()
	claims := Claims{
		Email: email,
		Role:  Audience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (v *Verifier) Resolve(_ context.Context, token string) (platform.Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !parsed.Valid {
		return platform.Identity{}, fmt.Errorf("%w: %v", platform.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return platform.Identity{}, platform.ErrInvalidToken
	}
	if len(claims.Audience) > 0 && !containsAudience(claims.Audience, Audience) {
		return platform.Identity{}, platform.ErrInvalidToken
	}
	return platform.Identity{UserID: claims.Subject, Email: claims.Email, Token: token}, nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}

var _ platform.Authenticator = (*Verifier)(nil)
