package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/backtest-vault/internal/api"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/config"
	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/logger"
	"github.com/yourusername/backtest-vault/internal/models"
	"github.com/yourusername/backtest-vault/internal/repository"
)

func newTestAPI(t *testing.T) (*Client, *events.Hub) {
	t.Helper()

	repos, err := repository.NewSQLiteRepositories(database.SetupTestSQLite(t))
	require.NoError(t, err)

	hub := events.NewHub(logger.Discard(), []string{"*"})
	t.Cleanup(hub.Close)

	srv, err := api.NewServer(api.Deps{
		Config: &config.Config{
			App:    config.AppConfig{Name: "backtest-vault", Environment: "test", LogLevel: "info"},
			Server: config.ServerConfig{Port: 5000, MaxBodyBytes: config.DefaultMaxBodyBytes, AllowedOrigins: []string{"*"}},
		},
		Repos:  repos,
		Events: hub,
		Logger: logger.Discard(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = ts.URL + "/api/"
	cfg.Timeout = 5 * time.Second
	cfg.RateLimit = 0
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, hub
}

func record(symbol string) *models.BacktestRecord {
	return &models.BacktestRecord{
		Symbol:         symbol,
		SymbolType:     models.SymbolTypeForex,
		StrategyName:   "Breakout",
		PeriodTest:     decimal.NewFromInt(2),
		TotalTrades:    10,
		ProfitFactor:   decimal.RequireFromString("1.25"),
		SharpeRatio:    decimal.RequireFromString("0.5"),
		RecoveryFactor: decimal.RequireFromString("3"),
		WinRate:        decimal.RequireFromString("61.5"),
		SetFile:        codec.Encode([]byte("Lots=1")),
	}
}

func TestNewValidatesBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "://bad"})
	assert.Error(t, err)
}

func TestBacktestLifecycle(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	id, err := c.CreateBacktest(ctx, record("eurusd"))
	require.NoError(t, err)
	require.Positive(t, id)

	list, err := c.ListBacktests(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "EURUSD", list[0].Symbol)
	assert.True(t, list[0].WinRate.Equal(decimal.RequireFromString("61.5")))

	upd := record("usdchf")
	upd.TotalTrades = 99
	require.NoError(t, c.UpdateBacktest(ctx, id, upd))

	list, err = c.ListBacktests(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USDCHF", list[0].Symbol)
	assert.Equal(t, int64(99), list[0].TotalTrades)

	require.NoError(t, c.DeleteBacktest(ctx, id))
	err = c.DeleteBacktest(ctx, id)
	assert.True(t, IsNotFound(err), "got %v", err)

	err = c.UpdateBacktest(ctx, id, upd)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestValidationErrorSurfaced(t *testing.T) {
	c, _ := newTestAPI(t)

	rec := record("eurusd")
	rec.WinRate = decimal.NewFromInt(150)
	_, err := c.CreateBacktest(context.Background(), rec)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "win_rate")
}

func TestStrategyLifecycle(t *testing.T) {
	c, _ := newTestAPI(t)
	ctx := context.Background()

	_, err := c.UploadStrategy(ctx, &models.StrategyFileBundle{
		StrategyName:   "Grid",
		StrategyExFile: codec.Encode([]byte("ex")),
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	id, err := c.UploadStrategy(ctx, &models.StrategyFileBundle{
		StrategyName:   "Grid",
		StrategyExFile: codec.Encode([]byte("ex")),
		StrategyMqFile: codec.Encode([]byte("mq")),
	})
	require.NoError(t, err)

	list, err := c.ListStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	require.NoError(t, c.DeleteStrategy(ctx, id))
	assert.True(t, IsNotFound(c.DeleteStrategy(ctx, id)))
}

func TestSubscribeReceivesMutations(t *testing.T) {
	c, hub := newTestAPI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feed, err := c.Subscribe(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	id, err := c.CreateBacktest(ctx, record("eurusd"))
	require.NoError(t, err)

	select {
	case ev := <-feed:
		assert.Equal(t, events.Event{Collection: events.CollectionBacktest, Action: events.ActionCreated, ID: id}, ev)
	case <-ctx.Done():
		t.Fatal("no event received")
	}

	cancel()
	for range feed {
	}
}

func TestRetriesIdempotentRequestsOnly(t *testing.T) {
	var gets, posts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if gets.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`[]`))
		case http.MethodPost:
			posts.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"unavailable"}`))
		}
	}))
	defer ts.Close()

	c, err := New(Config{
		BaseURL:      ts.URL + "/api/",
		Timeout:      time.Second,
		RetryMax:     3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	list, err := c.ListBacktests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int32(3), gets.Load())

	_, err = c.CreateBacktest(context.Background(), record("eurusd"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "unavailable", apiErr.Message)
	assert.Equal(t, int32(1), posts.Load())
}

func TestServerErrorWithoutRetries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
	}))
	defer ts.Close()

	c, err := New(Config{BaseURL: ts.URL + "/api/", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.ListStrategies(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "internal server error", apiErr.Message)
}
