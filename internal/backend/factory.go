package backend

import (
	"context"
	"fmt"
	"log/slog"

	"wonchon/internal/kv/file"
	"wonchon/internal/kv/memory"
	"wonchon/internal/kv/redis"
	"wonchon/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory store; drafts will not survive a restart")
		return &BackendResult{Store: memory.New()}, nil
	case FileBackend:
		return f.createFileBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	store, err := file.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	f.logger.Info("Initialized file store", "data_directory", config.DataDirectory)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	if config.Repository != nil {
		f.logger.Info("Initialized SQLite store on shared repository")
		return &BackendResult{Store: config.Repository}, nil
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := redis.Open(ctx, config.RedisURL, config.RedisKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}
	f.logger.Info("Initialized Redis store", "key_prefix", config.RedisKeyPrefix)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
