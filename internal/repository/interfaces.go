package repository

import (
	"context"

	"github.com/yourusername/backtest-vault/internal/models"
)

// BacktestRepository defines the interface for backtest record persistence.
// Update and Delete report the number of rows affected; zero means the id
// did not match.
type BacktestRepository interface {
	Create(ctx context.Context, record *models.BacktestRecord) (int64, error)
	List(ctx context.Context) ([]*models.BacktestRecord, error)
	Update(ctx context.Context, id int64, record *models.BacktestRecord) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// StrategyBundleRepository defines the interface for strategy file bundles.
// Bundles are immutable once stored.
type StrategyBundleRepository interface {
	Create(ctx context.Context, bundle *models.StrategyFileBundle) (int64, error)
	List(ctx context.Context) ([]*models.StrategyFileBundle, error)
	Delete(ctx context.Context, id int64) (int64, error)
}
