package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/backtest-vault/internal/models"
)

// SortKey names a sortable column.
type SortKey string

// Sortable columns
const (
	SortNone           SortKey = ""
	SortID             SortKey = "id"
	SortSymbol         SortKey = "symbol"
	SortSymbolType     SortKey = "symbol_type"
	SortStrategyName   SortKey = "strategy_name"
	SortPeriodTest     SortKey = "period_test"
	SortTotalTrades    SortKey = "total_trades"
	SortProfitFactor   SortKey = "profit_factor"
	SortSharpeRatio    SortKey = "sharpe_ratio"
	SortRecoveryFactor SortKey = "recovery_factor"
	SortWinRate        SortKey = "win_rate"
)

// SortKeys lists every column in display order.
var SortKeys = []SortKey{
	SortID, SortSymbol, SortSymbolType, SortStrategyName, SortPeriodTest, SortTotalTrades,
	SortProfitFactor, SortSharpeRatio, SortRecoveryFactor, SortWinRate,
}

// ParseSortKey validates a column name.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if k == SortNone {
		return SortNone, nil
	}
	for _, known := range SortKeys {
		if k == known {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort column %q", s)
}

// numeric reports whether the column compares numerically.
func (k SortKey) numeric() bool {
	switch k {
	case SortSymbol, SortSymbolType, SortStrategyName:
		return false
	}
	return true
}

func numericValue(r *models.BacktestRecord, k SortKey) decimal.Decimal {
	switch k {
	case SortID:
		return decimal.NewFromInt(r.ID)
	case SortPeriodTest:
		return r.PeriodTest
	case SortTotalTrades:
		return decimal.NewFromInt(r.TotalTrades)
	case SortProfitFactor:
		return r.ProfitFactor
	case SortSharpeRatio:
		return r.SharpeRatio
	case SortRecoveryFactor:
		return r.RecoveryFactor
	case SortWinRate:
		return r.WinRate
	}
	return decimal.Zero
}

func textValue(r *models.BacktestRecord, k SortKey) string {
	switch k {
	case SortSymbol:
		return strings.ToLower(r.Symbol)
	case SortSymbolType:
		return strings.ToLower(r.SymbolType)
	case SortStrategyName:
		return strings.ToLower(r.StrategyName)
	}
	return ""
}

// compare returns <0, 0, >0 for a vs b on column k.
func compare(a, b *models.BacktestRecord, k SortKey) int {
	if k.numeric() {
		return numericValue(a, k).Cmp(numericValue(b, k))
	}
	return strings.Compare(textValue(a, k), textValue(b, k))
}

// sortRecords orders rows in place. Ties keep their incoming order.
func sortRecords(rows []*models.BacktestRecord, k SortKey, desc bool) {
	if k == SortNone {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compare(rows[i], rows[j], k)
		if desc {
			return c > 0
		}
		return c < 0
	})
}
