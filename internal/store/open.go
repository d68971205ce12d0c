package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiranshivaraju/salesboard/internal/config"
)

// Open connects the backend selected by cfg.Driver, applying migrations for
// Postgres. The returned func releases the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		slog.Info("sqlite store opened", "path", cfg.URL)
		return s, func() { s.Close() }, nil

	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		slog.Info("database connected")

		if err := RunMigrations(cfg.URL, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return NewPostgresStore(pool), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
