package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/backtest-vault/internal/config"
)

func TestPoolConfigDefaults(t *testing.T) {
	for _, env := range []string{"DB_PASSWORD", "DB_NAME", "DB_HOST", "DB_USER", "DB_PORT", "VAULT_DATABASE_PASSWORD"} {
		t.Setenv(env, "")
	}
	t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "missing"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.Database.Password)

	pc, err := poolConfig(&cfg.Database)
	require.NoError(t, err)

	assert.Equal(t, "trading_strategys", pc.ConnConfig.Database)
	assert.Equal(t, "", pc.ConnConfig.Password)
	assert.Equal(t, "postgres", pc.ConnConfig.User)
	assert.Equal(t, "localhost", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
	assert.Equal(t, int32(100), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
}

func TestPoolConfigAwkwardPasswords(t *testing.T) {
	passwords := []string{
		"with space",
		"quote'd",
		`back\slash`,
		"p@ss/word?#",
		"dbname=other",
	}

	for _, pw := range passwords {
		t.Run(pw, func(t *testing.T) {
			db := config.DatabaseConfig{
				Host:           "db.internal",
				Port:           6543,
				User:           "vault",
				Password:       pw,
				Name:           "trading_strategys",
				SSLMode:        "require",
				MaxConnections: 10,
			}

			t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "missing"))
			pc, err := poolConfig(&db)
			require.NoError(t, err)

			assert.Equal(t, pw, pc.ConnConfig.Password)
			assert.Equal(t, "trading_strategys", pc.ConnConfig.Database)
			assert.Equal(t, "vault", pc.ConnConfig.User)
			assert.Equal(t, "db.internal", pc.ConnConfig.Host)
			assert.Equal(t, uint16(6543), pc.ConnConfig.Port)
		})
	}
}
