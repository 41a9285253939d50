// Package token persists the session's bearer token on the client so a
// later process can hydrate the same session.
package token

import (
	"context"
	"errors"
	"fmt"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned for an unsupported RepositoryConfig.Backend.
var ErrUnknownBackend = errors.New("unknown token storage backend")

// Repository defines durable key → token storage for one profile.
type Repository interface {
	// LoadToken returns the stored token and true, or "" and false if none
	// is stored. Returns an error if the storage cannot be read.
	LoadToken(ctx context.Context) (string, bool, error)

	// StoreToken replaces the stored token.
	StoreToken(ctx context.Context, token string) error

	// DeleteToken removes the stored token. Deleting a missing token is not
	// an error.
	DeleteToken(ctx context.Context) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// RepositoryConfig selects the backend and holds every backend's settings.
type RepositoryConfig struct {
	// Backend is one of "sqlite", "file", "redis" or "memory"
	Backend string `env:"BACKEND" default:"sqlite"`

	// Profile keys the token so several identities can share one store
	Profile string `env:"PROFILE" default:"default"`

	SQLite SQLiteTokenRepositoryConfig `envPrefix:"SQLITE_"`
	File   FileTokenRepositoryConfig   `envPrefix:"FILE_"`
	Redis  RedisTokenRepositoryConfig  `envPrefix:"REDIS_"`
}

// TokenRepositoryFactory returns a factory for the backend selected by cfg.
func TokenRepositoryFactory(cfg RepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		switch cfg.Backend {
		case BackendSQLite, "":
			return NewSQLiteTokenRepository(ctx, cfg.Profile, cfg.SQLite)
		case BackendFile:
			return NewFileTokenRepository(ctx, cfg.Profile, cfg.File)
		case BackendRedis:
			return NewRedisTokenRepository(ctx, cfg.Profile, cfg.Redis)
		case BackendMemory:
			return NewMemoryTokenRepository(), nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
		}
	}
}
