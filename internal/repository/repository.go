// Package repository implements the record store over Postgres or SQLite.
package repository

import (
	"fmt"

	"github.com/yourusername/backtest-vault/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Backtest       BacktestRepository
	StrategyBundle StrategyBundleRepository
}

// NewRepositories creates the Postgres-backed repositories
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Backtest:       NewPostgresBacktestRepository(db),
		StrategyBundle: NewPostgresStrategyBundleRepository(db),
	}, nil
}

// NewSQLiteRepositories creates the SQLite-backed repositories
func NewSQLiteRepositories(db *database.SQLiteDB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Backtest:       NewSQLiteBacktestRepository(db),
		StrategyBundle: NewSQLiteStrategyBundleRepository(db),
	}, nil
}
