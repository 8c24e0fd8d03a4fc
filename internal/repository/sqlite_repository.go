package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/models"
)

// SQLiteBacktestRepository implements BacktestRepository for the embedded store
type SQLiteBacktestRepository struct {
	db *database.SQLiteDB
}

// NewSQLiteBacktestRepository creates a new SQLite backtest repository
func NewSQLiteBacktestRepository(db *database.SQLiteDB) BacktestRepository {
	return &SQLiteBacktestRepository{db: db}
}

// Create inserts a backtest record and returns its generated id
func (r *SQLiteBacktestRepository) Create(ctx context.Context, record *models.BacktestRecord) (int64, error) {
	query := `
		INSERT INTO backtest (
			symbol, period_test, total_trades, profit_factor, sharpe_ratio,
			recovery_factor, win_rate, set_file, capital_curve, symbol_type, strategy_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Conn().ExecContext(ctx, query,
		record.Symbol, record.PeriodTest, record.TotalTrades, record.ProfitFactor, record.SharpeRatio,
		record.RecoveryFactor, record.WinRate, []byte(record.SetFile), []byte(record.CapitalCurve),
		record.SymbolType, record.StrategyName,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create backtest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read backtest id: %w", err)
	}
	return id, nil
}

// List returns every backtest record, newest first
func (r *SQLiteBacktestRepository) List(ctx context.Context) ([]*models.BacktestRecord, error) {
	query := `
		SELECT id, symbol, symbol_type, strategy_name, period_test, total_trades,
			profit_factor, sharpe_ratio, recovery_factor, win_rate,
			COALESCE(CAST(set_file AS TEXT), '') AS set_file,
			COALESCE(CAST(capital_curve AS TEXT), '') AS capital_curve
		FROM backtest
		ORDER BY id DESC
	`

	rows, err := r.db.Conn().QueryContext(ctx, query)
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
func (r *SQLiteBacktestRepository) Update(ctx context.Context, id int64, record *models.BacktestRecord) (int64, error) {
	query := `
		UPDATE backtest SET
			symbol = ?, period_test = ?, total_trades = ?, profit_factor = ?,
			sharpe_ratio = ?, recovery_factor = ?, win_rate = ?,
			set_file = ?, capital_curve = ?, symbol_type = ?, strategy_name = ?
		WHERE id = ?
	`

	res, err := r.db.Conn().ExecContext(ctx, query,
		record.Symbol, record.PeriodTest, record.TotalTrades, record.ProfitFactor,
		record.SharpeRatio, record.RecoveryFactor, record.WinRate,
		[]byte(record.SetFile), []byte(record.CapitalCurve), record.SymbolType, record.StrategyName,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update backtest: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes the record with the given id
func (r *SQLiteBacktestRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.Conn().ExecContext(ctx, "DELETE FROM backtest WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete backtest: %w", err)
	}
	return res.RowsAffected()
}

// SQLiteStrategyBundleRepository implements StrategyBundleRepository for the embedded store
type SQLiteStrategyBundleRepository struct {
	db  *database.SQLiteDB
	now func() time.Time
}

// NewSQLiteStrategyBundleRepository creates a new SQLite strategy bundle repository
func NewSQLiteStrategyBundleRepository(db *database.SQLiteDB) StrategyBundleRepository {
	return &SQLiteStrategyBundleRepository{db: db, now: time.Now}
}

// Create inserts a bundle. Both files must be present.
func (s *SQLiteStrategyBundleRepository) Create(ctx context.Context, bundle *models.StrategyFileBundle) (int64, error) {
	if err := bundle.Validate(); err != nil {
		return 0, err
	}

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	res, err := s.db.Conn().ExecContext(ctx,
		"INSERT INTO strategies (strategy_name, strategy_ex_file, strategy_mq_file, created_at) VALUES (?, ?, ?, ?)",
		bundle.StrategyName, []byte(bundle.StrategyExFile), []byte(bundle.StrategyMqFile), createdAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create strategy bundle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read strategy bundle id: %w", err)
	}
	bundle.ID = id
	bundle.CreatedAt = createdAt
	return id, nil
}

// List returns all bundles ordered by strategy name
func (s *SQLiteStrategyBundleRepository) List(ctx context.Context) ([]*models.StrategyFileBundle, error) {
	query := `
		SELECT id, strategy_name,
			CAST(strategy_ex_file AS TEXT), CAST(strategy_mq_file AS TEXT), created_at
		FROM strategies
		ORDER BY strategy_name ASC, id DESC
	`

	rows, err := s.db.Conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy bundles: %w", err)
	}
	defer rows.Close()

	bundles := make([]*models.StrategyFileBundle, 0)
	for rows.Next() {
		b := &models.StrategyFileBundle{}
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.StrategyName, &b.StrategyExFile, &b.StrategyMqFile, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy bundle: %w", err)
		}
		b.CreatedAt = time.UnixMilli(createdAt).UTC()
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}

// Delete removes a bundle
func (s *SQLiteStrategyBundleRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx, "DELETE FROM strategies WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete strategy bundle: %w", err)
	}
	return res.RowsAffected()
}
