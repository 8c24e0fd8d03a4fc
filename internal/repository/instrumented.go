package repository

import (
	"context"
	"time"

	"github.com/yourusername/backtest-vault/internal/metrics"
	"github.com/yourusername/backtest-vault/internal/models"
)

// Instrument wraps every repository so each call is counted and timed.
func Instrument(repos *Repositories) *Repositories {
	return &Repositories{
		Backtest:       &instrumentedBacktest{next: repos.Backtest},
		StrategyBundle: &instrumentedBundle{next: repos.StrategyBundle},
	}
}

type instrumentedBacktest struct {
	next BacktestRepository
}

func (i *instrumentedBacktest) Create(ctx context.Context, record *models.BacktestRecord) (id int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("backtest", "create", start, err) }(time.Now())
	return i.next.Create(ctx, record)
}

func (i *instrumentedBacktest) List(ctx context.Context) (records []*models.BacktestRecord, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("backtest", "list", start, err) }(time.Now())
	return i.next.List(ctx)
}

func (i *instrumentedBacktest) Update(ctx context.Context, id int64, record *models.BacktestRecord) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("backtest", "update", start, err) }(time.Now())
	return i.next.Update(ctx, id, record)
}

func (i *instrumentedBacktest) Delete(ctx context.Context, id int64) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("backtest", "delete", start, err) }(time.Now())
	return i.next.Delete(ctx, id)
}

type instrumentedBundle struct {
	next StrategyBundleRepository
}

func (i *instrumentedBundle) Create(ctx context.Context, bundle *models.StrategyFileBundle) (id int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("strategy_bundle", "create", start, err) }(time.Now())
	return i.next.Create(ctx, bundle)
}

func (i *instrumentedBundle) List(ctx context.Context) (bundles []*models.StrategyFileBundle, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("strategy_bundle", "list", start, err) }(time.Now())
	return i.next.List(ctx)
}

func (i *instrumentedBundle) Delete(ctx context.Context, id int64) (n int64, err error) {
	defer func(start time.Time) { metrics.RecordStoreOperation("strategy_bundle", "delete", start, err) }(time.Now())
	return i.next.Delete(ctx, id)
}
