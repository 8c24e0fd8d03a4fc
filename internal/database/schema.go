package database

// Table names shared by both drivers.
const (
	BacktestTable = "backtest"
	StrategyTable = "strategies"
)

// Attachments are stored as encoded text inside binary columns and cast back
// to text when read.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS backtest (
		id              BIGSERIAL PRIMARY KEY,
		symbol          VARCHAR(64)  NOT NULL,
		symbol_type     VARCHAR(64)  NOT NULL DEFAULT '',
		strategy_name   VARCHAR(255) NOT NULL,
		period_test     NUMERIC      NOT NULL DEFAULT 0,
		total_trades    BIGINT       NOT NULL DEFAULT 0,
		profit_factor   NUMERIC      NOT NULL DEFAULT 0,
		sharpe_ratio    NUMERIC      NOT NULL DEFAULT 0,
		recovery_factor NUMERIC      NOT NULL DEFAULT 0,
		win_rate        NUMERIC      NOT NULL DEFAULT 0,
		set_file        BYTEA,
		capital_curve   BYTEA
	)`,
	`CREATE TABLE IF NOT EXISTS strategies (
		id               BIGSERIAL PRIMARY KEY,
		strategy_name    VARCHAR(255) NOT NULL DEFAULT '',
		strategy_ex_file BYTEA        NOT NULL,
		strategy_mq_file BYTEA        NOT NULL,
		created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_strategies_name ON strategies(strategy_name)`,
}

// Decimals are kept as TEXT so values round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS backtest (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol          TEXT    NOT NULL,
		symbol_type     TEXT    NOT NULL DEFAULT '',
		strategy_name   TEXT    NOT NULL,
		period_test     TEXT    NOT NULL DEFAULT '0',
		total_trades    INTEGER NOT NULL DEFAULT 0,
		profit_factor   TEXT    NOT NULL DEFAULT '0',
		sharpe_ratio    TEXT    NOT NULL DEFAULT '0',
		recovery_factor TEXT    NOT NULL DEFAULT '0',
		win_rate        TEXT    NOT NULL DEFAULT '0',
		set_file        BLOB,
		capital_curve   BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS strategies (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		strategy_name    TEXT    NOT NULL DEFAULT '',
		strategy_ex_file BLOB    NOT NULL,
		strategy_mq_file BLOB    NOT NULL,
		created_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_strategies_name ON strategies(strategy_name)`,
}
