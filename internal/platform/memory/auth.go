// Package memory provides in-process platform backends for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"companion-backend/internal/platform"
)

// Authenticator resolves tokens from a fixed table.
type Authenticator struct {
	mu     sync.RWMutex
	tokens map[string]platform.Identity
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{tokens: make(map[string]platform.Identity)}
}

// Grant makes token resolve to userID.
func (a *Authenticator) Grant(token, userID, email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = platform.Identity{UserID: userID, Email: email, Token: token}
}

func (a *Authenticator) Resolve(ctx context.Context, token string) (platform.Identity, error) {
	if err := ctx.Err(); err != nil {
		return platform.Identity{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.tokens[token]
	if !ok {
		return platform.Identity{}, fmt.Errorf("%w: unknown token", platform.ErrInvalidToken)
	}
	return id, nil
}
