package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/models"
)

// ValidationError reports a request the handler refused before touching the store.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// bindError turns a gin binding failure into a client-facing error.
func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return &ValidationError{Message: strings.Join(msgs, "; ")}
	}
	return &ValidationError{Message: "invalid request body"}
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var jsonNames = map[string]string{
	"Symbol":         "symbol",
	"SymbolType":     "symbol_type",
	"StrategyName":   "strategy_name",
	"PeriodTest":     "period_test",
	"TotalTrades":    "total_trades",
	"ProfitFactor":   "profit_factor",
	"SharpeRatio":    "sharpe_ratio",
	"RecoveryFactor": "recovery_factor",
	"WinRate":        "win_rate",
	"SetFile":        "set_file",
	"CapitalCurve":   "capital_curve",
	"StrategyExFile": "strategy_ex_file",
	"StrategyMqFile": "strategy_mq_file",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return field
}

// statusFor maps an error to the HTTP status and the message safe to return.
func statusFor(err error) (int, string) {
	var (
		maxErr *http.MaxBytesError
		valErr *ValidationError
		decErr *codec.DecodeError
	)
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.As(err, &valErr):
		return http.StatusBadRequest, valErr.Message
	case errors.As(err, &decErr):
		return http.StatusBadRequest, decErr.Error()
	case errors.Is(err, models.ErrInvalidID),
		errors.Is(err, models.ErrSymbolRequired),
		errors.Is(err, models.ErrStrategyNameRequired),
		errors.Is(err, models.ErrMissingStrategyFiles):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
