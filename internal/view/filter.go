package view

import (
	"strings"

	"github.com/yourusername/backtest-vault/internal/models"
)

// Filters are case-insensitive substring matches, ANDed together. Empty
// values match everything.
type Filters struct {
	Symbol       string
	SymbolType   string
	StrategyName string
}

// Match reports whether r passes every filter.
func (f Filters) Match(r *models.BacktestRecord) bool {
	return containsFold(r.Symbol, f.Symbol) &&
		containsFold(r.SymbolType, f.SymbolType) &&
		containsFold(r.StrategyName, f.StrategyName)
}

// Active reports whether any filter is set.
func (f Filters) Active() bool {
	return f.Symbol != "" || f.SymbolType != "" || f.StrategyName != ""
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func filterRecords(rows []*models.BacktestRecord, f Filters) []*models.BacktestRecord {
	out := make([]*models.BacktestRecord, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
