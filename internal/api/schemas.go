package api

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/yourusername/backtest-vault/internal/models"
)

var registerOnce sync.Once

// registerValidators teaches gin's validator engine to range-check decimals.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
}

// BacktestRequest is the body of POST /api/backtest and PUT /api/backtest/:id.
// Pointer fields distinguish "absent" from zero.
type BacktestRequest struct {
	Symbol         *string          `json:"symbol" binding:"required"`
	SymbolType     *string          `json:"symbol_type"`
	StrategyName   *string          `json:"strategy_name" binding:"required"`
	PeriodTest     *decimal.Decimal `json:"period_test" binding:"omitempty,gte=0"`
	TotalTrades    *int64           `json:"total_trades" binding:"omitempty,gte=0"`
	ProfitFactor   *decimal.Decimal `json:"profit_factor"`
	SharpeRatio    *decimal.Decimal `json:"sharpe_ratio"`
	RecoveryFactor *decimal.Decimal `json:"recovery_factor"`
	WinRate        *decimal.Decimal `json:"win_rate" binding:"omitempty,gte=0,lte=100"`
	SetFile        *string          `json:"set_file"`
	CapitalCurve   *string          `json:"capital_curve"`
}

// Record converts the request into a normalized domain record.
func (r *BacktestRequest) Record() *models.BacktestRecord {
	rec := &models.BacktestRecord{
		Symbol:         deref(r.Symbol),
		SymbolType:     deref(r.SymbolType),
		StrategyName:   deref(r.StrategyName),
		PeriodTest:     derefDecimal(r.PeriodTest),
		ProfitFactor:   derefDecimal(r.ProfitFactor),
		SharpeRatio:    derefDecimal(r.SharpeRatio),
		RecoveryFactor: derefDecimal(r.RecoveryFactor),
		WinRate:        derefDecimal(r.WinRate),
		SetFile:        deref(r.SetFile),
		CapitalCurve:   deref(r.CapitalCurve),
	}
	if r.TotalTrades != nil {
		rec.TotalTrades = *r.TotalTrades
	}
	rec.Normalize()
	return rec
}

// StrategyUploadRequest is the body of POST /api/upload/strategies.
type StrategyUploadRequest struct {
	StrategyName   string `json:"strategy_name"`
	StrategyExFile string `json:"strategy_ex_file" binding:"required"`
	StrategyMqFile string `json:"strategy_mq_file" binding:"required"`
}

// Bundle converts the request into a domain bundle.
func (r *StrategyUploadRequest) Bundle() *models.StrategyFileBundle {
	return &models.StrategyFileBundle{
		StrategyName:   r.StrategyName,
		StrategyExFile: r.StrategyExFile,
		StrategyMqFile: r.StrategyMqFile,
	}
}

// MessageResponse is returned by every mutating endpoint.
type MessageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

// ErrorResponse is returned on every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
