package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/backtest-vault/internal/api"
	"github.com/yourusername/backtest-vault/internal/config"
	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/logger"
	"github.com/yourusername/backtest-vault/internal/repository"
)

func startAPI(t *testing.T) string {
	t.Helper()
	repos, err := repository.NewSQLiteRepositories(database.SetupTestSQLite(t))
	require.NoError(t, err)

	srv, err := api.NewServer(api.Deps{
		Config: &config.Config{
			App:    config.AppConfig{Name: "backtest-vault", Environment: "test", LogLevel: "info"},
			Server: config.ServerConfig{Port: 5000, MaxBodyBytes: config.DefaultMaxBodyBytes, AllowedOrigins: []string{"*"}},
		},
		Repos:  repos,
		Logger: logger.Discard(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/api/"
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	stdout = &out
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVaultctlRoundTrip(t *testing.T) {
	chdir(t, t.TempDir())
	base := startAPI(t)

	require.NoError(t, os.WriteFile("breakout.set", []byte("InpLots=0.1\n"), 0o644))
	require.NoError(t, os.WriteFile("grid.ex5", []byte("compiled"), 0o644))
	require.NoError(t, os.WriteFile("grid.mq5", []byte("//+ source"), 0o644))

	out, err := run(t, "--api", base, "backtests", "create",
		"--symbol", "eurusd", "--strategy", "Breakout", "--trades", "100",
		"--pf", "1.5", "--win-rate", "55", "--set-file", "breakout.set")
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest 1 saved")

	_, err = run(t, "--api", base, "backtests", "create",
		"--symbol", "btcusd", "--type", "Crypto", "--strategy", "Trend", "--trades", "7",
		"--set-file", "")
	require.NoError(t, err)

	out, err = run(t, "--api", base, "backtests", "list", "--symbol", "EUR", "--sort", "total_trades")
	require.NoError(t, err)
	assert.Contains(t, out, "EURUSD")
	assert.NotContains(t, out, "BTCUSD")
	assert.Contains(t, out, "1 of 2 rows")

	dir := filepath.Join(t.TempDir(), "downloads")
	out, err = run(t, "--api", base, "backtests", "download-set", "1", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Breakout - EURUSD.set")
	data, err := os.ReadFile(filepath.Join(dir, "Breakout - EURUSD.set"))
	require.NoError(t, err)
	assert.Equal(t, "InpLots=0.1\n", string(data))

	_, err = run(t, "--api", base, "backtests", "curve", "1", "--dir", dir)
	assert.Error(t, err)

	out, err = run(t, "--api", base, "strategies", "upload", "--name", "Grid", "--ex", "grid.ex5", "--mq", "grid.mq5")
	require.NoError(t, err)
	assert.Contains(t, out, `"Grid" uploaded`)

	out, err = run(t, "--api", base, "strategies", "download", "1", "--kind", "mq", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Grid.mq5")

	_, err = run(t, "--api", base, "strategies", "upload", "--name", "Bad", "--ex", "breakout.set", "--mq", "grid.mq5")
	assert.Error(t, err)

	stdin = strings.NewReader("n\n")
	out, err = run(t, "--api", base, "backtests", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	out, err = run(t, "--api", base, "backtests", "delete", "2", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Backtest 2 deleted")

	_, err = run(t, "--api", base, "backtests", "update", "2", "--symbol", "x", "--strategy", "y", "--set-file", "")
	assert.Error(t, err)

	_, err = run(t, "--api", base, "backtests", "delete", "abc", "--yes")
	assert.Error(t, err)
}

func TestRecordFlagsRejectBadNumbers(t *testing.T) {
	f := recordFlags{symbol: "eurusd", strategy: "X", period: "1", pf: "abc", sharpe: "0", rf: "0", winRate: "0"}
	_, err := f.record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pf")

	f.pf = "1.5"
	rec, err := f.record()
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", rec.Symbol)
}
