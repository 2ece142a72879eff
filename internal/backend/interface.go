package backend

import (
	"context"

	"wonchon/internal/kv"
	"wonchon/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store instance and optional cleanup function
type BackendResult struct {
	Store   kv.Store
	Cleanup CleanupFunc
}

// Factory creates key-value stores based on configuration
type Factory interface {
	// CreateBackend creates a store instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// File backend specific
	DataDirectory string

	// SQLite specific. When Repository is set it is shared and not closed
	// by the cleanup func.
	SQLiteDBPath string
	Repository   *storage.SQLiteRepository

	// Redis specific
	RedisURL       string
	RedisKeyPrefix string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}
