package database

import (
	"context"
	"fmt"

	"github.com/yourusername/backtest-vault/internal/config"
)

// Initialize creates a Postgres pool, optionally bootstraps the schema, and
// verifies both tables exist.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CreateSchema {
		for _, stmt := range postgresSchema {
			if _, err := db.pool.Exec(ctx, stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to create schema: %w", err)
			}
		}
	}

	for _, table := range []string{BacktestTable, StrategyTable} {
		var exists bool
		err := db.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1)", table).Scan(&exists)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		if !exists {
			db.Close()
			return nil, fmt.Errorf("table %q not found; create it or set database.create_schema=true", table)
		}
	}

	return db, nil
}
