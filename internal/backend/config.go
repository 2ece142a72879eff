package backend

import (
	"errors"
	"fmt"

	"wonchon/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.StoreBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.StoreBackend)
	}

	return Config{
		Type:           backendType,
		DataDirectory:  appConfig.DataDir,
		SQLiteDBPath:   appConfig.SQLiteDBPath,
		RedisURL:       appConfig.RedisURL,
		RedisKeyPrefix: appConfig.RedisKeyPrefix,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.DataDirectory == "" {
			return errors.New("data directory is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" && c.Repository == nil {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case RedisBackend:
		if c.RedisURL == "" {
			return errors.New("Redis URL is required for redis backend")
		}
	case MemoryBackend:
		// Memory backend doesn't require additional validation
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend, RedisBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
