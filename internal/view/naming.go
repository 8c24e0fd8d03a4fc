package view

import (
	"fmt"
	"strings"

	"github.com/yourusername/backtest-vault/internal/codec"
	"github.com/yourusername/backtest-vault/internal/models"
)

// SetFileName is "<strategy_name> - <symbol>.set".
func SetFileName(r *models.BacktestRecord) string {
	return fmt.Sprintf("%s - %s.set", r.StrategyName, r.Symbol)
}

// CapitalCurveName is "<strategy_name> - <symbol><ext>" with ext sniffed from data.
func CapitalCurveName(r *models.BacktestRecord, data []byte) string {
	ext := codec.Extension(data)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s - %s%s", r.StrategyName, r.Symbol, ext)
}

// BundleFileName is "<strategy_name>.ex5" or "<strategy_name>.mq5".
func BundleFileName(b *models.StrategyFileBundle, kind FileKind) string {
	return b.StrategyName + kind.Extension()
}

// SafeFileName replaces characters that cannot appear in a file name.
func SafeFileName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "\x00", "")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" || name == "." || name == ".." {
		return "download"
	}
	return name
}
