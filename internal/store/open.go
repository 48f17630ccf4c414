package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/vicere/internal/config"
)

// Backend is a Store with a connection lifecycle.
type Backend interface {
	Store
	Close() error
	Ping(ctx context.Context) error
}

// Open builds the adapter selected by c.StoreAdapter. For postgres, pending
// migrations in migrationsDir are applied first.
func Open(c *config.Config, migrationsDir string) (Backend, error) {
	switch c.StoreAdapter {
	case "sqlite":
		if c.SQLiteFile == "" {
			return nil, fmt.Errorf("SQLITE_FILE must be set when STORE_ADAPTER=sqlite")
		}
		s, err := NewSQLite(c.SQLiteFile)
		if err != nil {
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		return s, nil
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres config error: %w", err)
		}
		if err := ApplyMigrations(migrationsDir, dsn); err != nil {
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
		p, err := NewPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres init: %w", err)
		}
		return p, nil
	case "redis":
		r, err := NewRedis(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis init: %w", err)
		}
		return r, nil
	case "memory":
		slog.Warn("using in-memory store; sessions will not survive a restart")
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported STORE_ADAPTER: %s (supported: sqlite, postgres, redis, memory)", c.StoreAdapter)
	}
}
