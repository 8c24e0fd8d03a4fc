package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDatabaseURLEnv names the Postgres DSN used by integration tests.
const TestDatabaseURLEnv = "VAULT_TEST_DATABASE_URL"

// SetupTestSQLite opens a throwaway SQLite store in the test's temp dir.
func SetupTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("failed to open test sqlite: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test sqlite: %v", err)
		}
	})
	return db
}

// SetupTestDB connects to the Postgres named by VAULT_TEST_DATABASE_URL,
// bootstraps the schema and truncates both tables. Skips when unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skip("Integration test - requires " + TestDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	db := &DB{pool: pool}
	t.Cleanup(db.Close)

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	if _, err := pool.Exec(ctx, "TRUNCATE backtest, strategies RESTART IDENTITY"); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	return db
}
