package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/models"
)

const errScanBacktest = "failed to scan backtest record: %w"

// PostgresBacktestRepository implements BacktestRepository for PostgreSQL
type PostgresBacktestRepository struct {
	db *database.DB
}

// NewPostgresBacktestRepository creates a new backtest repository
func NewPostgresBacktestRepository(db *database.DB) BacktestRepository {
	return &PostgresBacktestRepository{db: db}
}

// Create inserts a backtest record and returns its generated id
func (r *PostgresBacktestRepository) Create(ctx context.Context, record *models.BacktestRecord) (int64, error) {
	query := `
		INSERT INTO backtest (
			symbol, period_test, total_trades, profit_factor, sharpe_ratio,
			recovery_factor, win_rate, set_file, capital_curve, symbol_type, strategy_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, convert_to($8, 'UTF8'), convert_to($9, 'UTF8'), $10, $11)
		RETURNING id
	`

	var id int64
	err := r.db.GetPool().QueryRow(ctx, query,
		record.Symbol, record.PeriodTest, record.TotalTrades, record.ProfitFactor, record.SharpeRatio,
		record.RecoveryFactor, record.WinRate, record.SetFile, record.CapitalCurve, record.SymbolType, record.StrategyName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create backtest: %w", err)
	}
	return id, nil
}

// List returns every backtest record, newest first
func (r *PostgresBacktestRepository) List(ctx context.Context) ([]*models.BacktestRecord, error) {
	query := `
		SELECT id, symbol, symbol_type, strategy_name, period_test, total_trades,
			profit_factor, sharpe_ratio, recovery_factor, win_rate,
			COALESCE(convert_from(set_file, 'UTF8'), '') AS set_file,
			COALESCE(convert_from(capital_curve, 'UTF8'), '') AS capital_curve
		FROM backtest
		ORDER BY id DESC
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtests: %w", err)
	}
	defer rows.Close()

	records := make([]*models.BacktestRecord, 0)
	for rows.Next() {
		rec := &models.BacktestRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.SymbolType, &rec.StrategyName, &rec.PeriodTest, &rec.TotalTrades,
			&rec.ProfitFactor, &rec.SharpeRatio, &rec.RecoveryFactor, &rec.WinRate,
			&rec.SetFile, &rec.CapitalCurve,
		); err != nil {
			return nil, fmt.Errorf(errScanBacktest, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update replaces every field of the record with the given id
func (r *PostgresBacktestRepository) Update(ctx context.Context, id int64, record *models.BacktestRecord) (int64, error) {
	query := `
		UPDATE backtest SET
			symbol = $2, period_test = $3, total_trades = $4, profit_factor = $5,
			sharpe_ratio = $6, recovery_factor = $7, win_rate = $8,
			set_file = convert_to($9, 'UTF8'), capital_curve = convert_to($10, 'UTF8'),
			symbol_type = $11, strategy_name = $12
		WHERE id = $1
	`

	commandTag, err := r.db.GetPool().Exec(ctx, query, id,
		record.Symbol, record.PeriodTest, record.TotalTrades, record.ProfitFactor,
		record.SharpeRatio, record.RecoveryFactor, record.WinRate,
		record.SetFile, record.CapitalCurve,
		record.SymbolType, record.StrategyName,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update backtest: %w", err)
	}
	return commandTag.RowsAffected(), nil
}

// Delete removes the record with the given id
func (r *PostgresBacktestRepository) Delete(ctx context.Context, id int64) (int64, error) {
	commandTag, err := r.db.GetPool().Exec(ctx, "DELETE FROM backtest WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete backtest: %w", err)
	}
	return commandTag.RowsAffected(), nil
}
