package auth

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"wonchon/internal/kv/memory"
)

func init() {
	// Keep key derivation fast in tests.
	scryptN = 1 << 10
}

func TestTokenStorePlain(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := NewTokenStore(backend, "")

	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Token() err = %v, want ErrNoToken", err)
	}
	if s.HasToken(ctx) {
		t.Fatalf("flag set before login")
	}

	if err := s.SetToken(ctx, " abc.def "); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	tok, err := s.Token(ctx)
	if err != nil || tok != "abc.def" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}
	if !s.HasToken(ctx) {
		t.Fatalf("flag not set after login")
	}
	if raw, _, _ := backend.Get(ctx, TokenKey); string(raw) != "abc.def" {
		t.Fatalf("stored token = %q", raw)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Token(ctx); !errors.Is(err, ErrNoToken) || s.HasToken(ctx) {
		t.Fatalf("token survived clear")
	}

	if err := s.SetToken(ctx, "   "); !errors.Is(err, ErrNoToken) {
		t.Fatalf("blank token err = %v", err)
	}
}

func TestTokenStoreSealed(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	if err := NewTokenStore(backend, "pass").SetToken(ctx, "secret-token"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	raw, _, _ := backend.Get(ctx, TokenKey)
	if bytes.Contains(raw, []byte("secret-token")) {
		t.Fatalf("token stored in clear: %s", raw)
	}

	// A fresh store has no cache and must open the envelope.
	tok, err := NewTokenStore(backend, "pass").Token(ctx)
	if err != nil || tok != "secret-token" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}
	if _, err := NewTokenStore(backend, "wrong").Token(ctx); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("wrong passphrase err = %v", err)
	}
}

func TestIsPublicPath(t *testing.T) {
	for _, p := range []string{"/login", "/login/success", "/login/fail"} {
		if !IsPublicPath(p) {
			t.Errorf("%s should be public", p)
		}
	}
	for _, p := range []string{"/", "/home", "/login/other", "/business/1"} {
		if IsPublicPath(p) {
			t.Errorf("%s should require a token", p)
		}
	}
}
