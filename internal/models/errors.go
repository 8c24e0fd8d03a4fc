package models

import "errors"

// Custom errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidID            = errors.New("invalid ID format")
	ErrSymbolRequired       = errors.New("symbol is required")
	ErrStrategyNameRequired = errors.New("strategy name is required")
	ErrMissingStrategyFiles = errors.New("both strategy_ex_file and strategy_mq_file are required")
)
