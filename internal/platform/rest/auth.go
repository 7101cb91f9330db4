package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"companion-backend/internal/platform"
)

// Auth resolves bearer tokens against /auth/v1/user.
type Auth struct {
	c *Client
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (a *Auth) Resolve(ctx context.Context, token string) (platform.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return platform.Identity{}, platform.ErrInvalidToken
	}

	resp, err := a.c.http.R().
		SetContext(ctx).
		SetHeader("apikey", a.c.anonKey).
		SetAuthToken(token).
		Get("/auth/v1/user")
	if err != nil {
		return platform.Identity{}, fmt.Errorf("resolve token request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return platform.Identity{}, fmt.Errorf("%w: %v", platform.ErrInvalidToken, err)
	}

	var user authUser
	if err := json.Unmarshal(resp.Body(), &user); err != nil {
		return platform.Identity{}, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return platform.Identity{}, platform.ErrInvalidToken
	}
	return platform.Identity{UserID: user.ID, Email: user.Email, Token: token}, nil
}

var _ platform.Authenticator = (*Auth)(nil)
