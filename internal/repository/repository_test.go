package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/models"
)

func sampleRecord(symbol string) *models.BacktestRecord {
	rec := &models.BacktestRecord{
		Symbol:         symbol,
		SymbolType:     models.SymbolTypeForex,
		StrategyName:   "Breakout",
		PeriodTest:     decimal.RequireFromString("1.5"),
		TotalTrades:    100,
		ProfitFactor:   decimal.RequireFromString("1.5"),
		SharpeRatio:    decimal.RequireFromString("-0.8"),
		RecoveryFactor: decimal.RequireFromString("2.1"),
		WinRate:        decimal.RequireFromString("55.25"),
		SetFile:        codec.EncodeDataURL([]byte("InpLots=0.1\n"), "application/octet-stream"),
		CapitalCurve:   codec.Encode([]byte{0x89, 'P', 'N', 'G', 0x00, 0xff}),
	}
	rec.Normalize()
	return rec
}

func sqliteRepos(t *testing.T) *Repositories {
	repos, err := NewSQLiteRepositories(database.SetupTestSQLite(t))
	require.NoError(t, err)
	return repos
}

func assertSameRecord(t *testing.T, want, got *models.BacktestRecord) {
	t.Helper()
	assert.Equal(t, want.Symbol, got.Symbol)
	assert.Equal(t, want.SymbolType, got.SymbolType)
	assert.Equal(t, want.StrategyName, got.StrategyName)
	assert.Equal(t, want.TotalTrades, got.TotalTrades)
	assert.True(t, want.PeriodTest.Equal(got.PeriodTest), "period_test")
	assert.True(t, want.ProfitFactor.Equal(got.ProfitFactor), "profit_factor")
	assert.True(t, want.SharpeRatio.Equal(got.SharpeRatio), "sharpe_ratio")
	assert.True(t, want.RecoveryFactor.Equal(got.RecoveryFactor), "recovery_factor")
	assert.True(t, want.WinRate.Equal(got.WinRate), "win_rate")
	assert.Equal(t, want.SetFile, got.SetFile)
	assert.Equal(t, want.CapitalCurve, got.CapitalCurve)
}

func runBacktestSuite(t *testing.T, repos *Repositories) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("empty list is not nil", func(t *testing.T) {
		list, err := repos.Backtest.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	var firstID int64
	t.Run("create then list", func(t *testing.T) {
		rec := sampleRecord("eurusd")
		id, err := repos.Backtest.Create(ctx, rec)
		require.NoError(t, err)
		require.Positive(t, id)
		firstID = id

		list, err := repos.Backtest.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].ID)
		assert.Equal(t, "EURUSD", list[0].Symbol)
		assertSameRecord(t, rec, list[0])

		setBytes, err := codec.Decode(list[0].SetFile)
		require.NoError(t, err)
		assert.Equal(t, "InpLots=0.1\n", string(setBytes))
	})

	t.Run("list is newest first", func(t *testing.T) {
		id, err := repos.Backtest.Create(ctx, sampleRecord("gbpusd"))
		require.NoError(t, err)

		list, err := repos.Backtest.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, id, list[0].ID)
		assert.Equal(t, firstID, list[1].ID)
	})

	t.Run("update replaces all fields", func(t *testing.T) {
		replacement := sampleRecord("usdjpy")
		replacement.StrategyName = "Mean Reversion"
		replacement.TotalTrades = 7
		replacement.SetFile = ""

		n, err := repos.Backtest.Update(ctx, firstID, replacement)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		list, err := repos.Backtest.List(ctx)
		require.NoError(t, err)
		for _, rec := range list {
			if rec.ID == firstID {
				assertSameRecord(t, replacement, rec)
			}
		}
	})

	t.Run("update of unknown id affects nothing", func(t *testing.T) {
		before, err := repos.Backtest.List(ctx)
		require.NoError(t, err)

		n, err := repos.Backtest.Update(ctx, 999999, sampleRecord("xauusd"))
		require.NoError(t, err)
		assert.Zero(t, n)

		after, err := repos.Backtest.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("delete twice", func(t *testing.T) {
		n, err := repos.Backtest.Delete(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repos.Backtest.Delete(ctx, firstID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func runBundleSuite(t *testing.T, repos *Repositories) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Run("missing file rejected before store", func(t *testing.T) {
		_, err := repos.StrategyBundle.Create(ctx, &models.StrategyFileBundle{
			StrategyName:   "Grid",
			StrategyExFile: codec.Encode([]byte("ex")),
		})
		assert.ErrorIs(t, err, models.ErrMissingStrategyFiles)

		list, err := repos.StrategyBundle.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	var gridID int64
	t.Run("create and list ordered by name", func(t *testing.T) {
		for _, name := range []string{"Scalper", "Grid", ""} {
			b := &models.StrategyFileBundle{
				StrategyName:   name,
				StrategyExFile: codec.Encode([]byte("compiled " + name)),
				StrategyMqFile: codec.Encode([]byte("source " + name)),
			}
			id, err := repos.StrategyBundle.Create(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, id, b.ID)
			assert.False(t, b.CreatedAt.IsZero())
			if name == "Grid" {
				gridID = id
			}
		}

		list, err := repos.StrategyBundle.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "", list[0].StrategyName)
		assert.Equal(t, "Grid", list[1].StrategyName)
		assert.Equal(t, "Scalper", list[2].StrategyName)

		mq, err := codec.Decode(list[1].StrategyMqFile)
		require.NoError(t, err)
		assert.Equal(t, "source Grid", string(mq))
		assert.False(t, list[1].CreatedAt.IsZero())
	})

	t.Run("delete twice", func(t *testing.T) {
		n, err := repos.StrategyBundle.Delete(ctx, gridID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repos.StrategyBundle.Delete(ctx, gridID)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestSQLiteBacktestRepository(t *testing.T) {
	runBacktestSuite(t, sqliteRepos(t))
}

func TestSQLiteStrategyBundleRepository(t *testing.T) {
	runBundleSuite(t, sqliteRepos(t))
}

func TestInstrumentedRepositoriesDelegate(t *testing.T) {
	runBacktestSuite(t, Instrument(sqliteRepos(t)))
}

func TestSQLiteConcurrentCreates(t *testing.T) {
	repos := sqliteRepos(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan int64, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := repos.Backtest.Create(ctx, sampleRecord("btcusd"))
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	list, err := repos.Backtest.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

// TestPostgresRepositories runs the same suites against a live Postgres
func TestPostgresRepositories(t *testing.T) {
	db := database.SetupTestDB(t)

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	t.Run("backtest", func(t *testing.T) { runBacktestSuite(t, repos) })
	t.Run("bundle", func(t *testing.T) { runBundleSuite(t, repos) })
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)

	_, err = NewSQLiteRepositories(nil)
	assert.Error(t, err)
}
