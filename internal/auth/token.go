// Package auth keeps the filing API access token and the "has token" flag
// that page routing checks.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"wonchon/internal/kv"
)

const (
	TokenKey    = "accessToken"
	HasTokenKey = "has_token"
)

// PublicPaths are reachable without a token.
var PublicPaths = []string{"/login", "/login/success", "/login/fail"}

var ErrNoToken = errors.New("no access token")

// TokenStore reads and writes the access token. With a passphrase the token
// is sealed before it reaches the backend.
type TokenStore struct {
	kv         kv.Store
	passphrase string

	mu     sync.RWMutex
	cached string
}

func NewTokenStore(s kv.Store, passphrase string) *TokenStore {
	return &TokenStore{kv: s, passphrase: passphrase}
}

// Token returns the stored token or ErrNoToken.
func (t *TokenStore) Token(ctx context.Context) (string, error) {
	t.mu.RLock()
	cached := t.cached
	t.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	raw, ok, err := t.kv.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if !ok || len(raw) == 0 {
		return "", ErrNoToken
	}
	if t.passphrase != "" {
		if raw, err = open(t.passphrase, raw); err != nil {
			return "", err
		}
	}

	token := string(raw)
	t.mu.Lock()
	t.cached = token
	t.mu.Unlock()
	return token, nil
}

// SetToken stores token and raises the has-token flag.
func (t *TokenStore) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	raw := []byte(token)
	if t.passphrase != "" {
		var err error
		if raw, err = seal(t.passphrase, raw); err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
	}
	if err := t.kv.Set(ctx, TokenKey, raw); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := t.kv.Set(ctx, HasTokenKey, []byte("1")); err != nil {
		return fmt.Errorf("store token flag: %w", err)
	}

	t.mu.Lock()
	t.cached = token
	t.mu.Unlock()
	return nil
}

// Clear removes the token and its flag.
func (t *TokenStore) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.cached = ""
	t.mu.Unlock()

	if err := t.kv.Remove(ctx, TokenKey); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	if err := t.kv.Remove(ctx, HasTokenKey); err != nil {
		return fmt.Errorf("remove token flag: %w", err)
	}
	return nil
}

// HasToken reads only the non-sensitive flag.
func (t *TokenStore) HasToken(ctx context.Context) bool {
	v, ok, err := t.kv.Get(ctx, HasTokenKey)
	return err == nil && ok && string(v) == "1"
}

// IsPublicPath reports whether path is reachable without logging in.
func IsPublicPath(path string) bool {
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}
