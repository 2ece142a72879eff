// Package kv defines the small key-value port used for device-local state
// such as declaration drafts and the access token.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("kv: store closed")

type (
	// Store is a byte-oriented key-value store. A missing key is not an
	// error: Get reports it with ok == false.
	Store interface {
		Get(ctx context.Context, key string) (value []byte, ok bool, err error)
		Set(ctx context.Context, key string, value []byte) error
		Remove(ctx context.Context, key string) error
	}

	// Lister is implemented by stores that can enumerate keys.
	Lister interface {
		Keys(ctx context.Context, prefix string) ([]string, error)
	}
)
