package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/models"
)

// PostgresStrategyBundleRepository implements StrategyBundleRepository for PostgreSQL
type PostgresStrategyBundleRepository struct {
	db *database.DB
}

// NewPostgresStrategyBundleRepository creates a new strategy bundle repository
func NewPostgresStrategyBundleRepository(db *database.DB) StrategyBundleRepository {
	return &PostgresStrategyBundleRepository{db: db}
}

// Create inserts a bundle. Both files must be present.
func (s *PostgresStrategyBundleRepository) Create(ctx context.Context, bundle *models.StrategyFileBundle) (int64, error) {
	if err := bundle.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO strategies (strategy_name, strategy_ex_file, strategy_mq_file)
		VALUES ($1, convert_to($2, 'UTF8'), convert_to($3, 'UTF8'))
		RETURNING id, created_at
	`

	err := s.db.GetPool().QueryRow(ctx, query,
		bundle.StrategyName, bundle.StrategyExFile, bundle.StrategyMqFile,
	).Scan(&bundle.ID, &bundle.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create strategy bundle: %w", err)
	}
	return bundle.ID, nil
}

// List returns all bundles ordered by strategy name
func (s *PostgresStrategyBundleRepository) List(ctx context.Context) ([]*models.StrategyFileBundle, error) {
	query := `
		SELECT id, strategy_name,
			convert_from(strategy_ex_file, 'UTF8') AS strategy_ex_file,
			convert_from(strategy_mq_file, 'UTF8') AS strategy_mq_file,
			created_at
		FROM strategies
		ORDER BY strategy_name ASC, id DESC
	`

	rows, err := s.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategy bundles: %w", err)
	}
	defer rows.Close()

	bundles := make([]*models.StrategyFileBundle, 0)
	for rows.Next() {
		b := &models.StrategyFileBundle{}
		if err := rows.Scan(&b.ID, &b.StrategyName, &b.StrategyExFile, &b.StrategyMqFile, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy bundle: %w", err)
		}
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}

// Delete removes a bundle
func (s *PostgresStrategyBundleRepository) Delete(ctx context.Context, id int64) (int64, error) {
	commandTag, err := s.db.GetPool().Exec(ctx, "DELETE FROM strategies WHERE id = $1", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete strategy bundle: %w", err)
	}
	return commandTag.RowsAffected(), nil
}
