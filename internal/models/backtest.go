// Package models defines the persisted entities of the backtest vault.
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Metrics travel as JSON numbers, matching what the browser form submits.
	decimal.MarshalJSONWithoutQuotes = true
}

// Symbol types offered by the entry form. Advisory only; the store accepts any string.
const (
	SymbolTypeForex       = "Forex"
	SymbolTypeStocks      = "Stocks"
	SymbolTypeIndices     = "Indices"
	SymbolTypeCrypto      = "Crypto"
	SymbolTypeCommodities = "Commodities"
)

// SymbolTypes lists the advisory symbol type values in display order.
var SymbolTypes = []string{
	SymbolTypeForex,
	SymbolTypeStocks,
	SymbolTypeIndices,
	SymbolTypeCrypto,
	SymbolTypeCommodities,
}

// BacktestRecord represents the recorded metrics of one strategy backtest.
// SetFile and CapitalCurve hold encoded text (bare base64 or a data URL).
type BacktestRecord struct {
	ID             int64           `db:"id" json:"id"`
	Symbol         string          `db:"symbol" json:"symbol"`
	SymbolType     string          `db:"symbol_type" json:"symbol_type"`
	StrategyName   string          `db:"strategy_name" json:"strategy_name"`
	PeriodTest     decimal.Decimal `db:"period_test" json:"period_test"`
	TotalTrades    int64           `db:"total_trades" json:"total_trades"`
	ProfitFactor   decimal.Decimal `db:"profit_factor" json:"profit_factor"`
	SharpeRatio    decimal.Decimal `db:"sharpe_ratio" json:"sharpe_ratio"`
	RecoveryFactor decimal.Decimal `db:"recovery_factor" json:"recovery_factor"`
	WinRate        decimal.Decimal `db:"win_rate" json:"win_rate"`
	SetFile        string          `db:"set_file" json:"set_file"`
	CapitalCurve   string          `db:"capital_curve" json:"capital_curve"`
}

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Normalize applies input-time normalization in place.
func (r *BacktestRecord) Normalize() {
	r.Symbol = NormalizeSymbol(r.Symbol)
}

// Validate checks the invariants the store relies on.
func (r *BacktestRecord) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return ErrSymbolRequired
	}
	if strings.TrimSpace(r.StrategyName) == "" {
		return ErrStrategyNameRequired
	}
	return nil
}
