package models

import "time"

// StrategyFileBundle pairs a compiled strategy with its source, both as encoded text.
type StrategyFileBundle struct {
	ID             int64     `db:"id" json:"id"`
	StrategyName   string    `db:"strategy_name" json:"strategy_name"`
	StrategyExFile string    `db:"strategy_ex_file" json:"strategy_ex_file"`
	StrategyMqFile string    `db:"strategy_mq_file" json:"strategy_mq_file"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Validate rejects bundles missing either file.
func (b *StrategyFileBundle) Validate() error {
	if b.StrategyExFile == "" || b.StrategyMqFile == "" {
		return ErrMissingStrategyFiles
	}
	return nil
}
