package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/yourusername/backtest-vault/internal/models"
	"github.com/yourusername/backtest-vault/internal/view"
)

func yesNo(s string) string {
	if s == "" {
		return "-"
	}
	return "yes"
}

func renderBacktests(w io.Writer, rows []*models.BacktestRecord, total int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSYMBOL\tTYPE\tSTRATEGY\tPERIOD\tTRADES\tPF\tSHARPE\tRF\tWIN%\tSET\tCURVE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Symbol, r.SymbolType, r.StrategyName,
			r.PeriodTest.String(), r.TotalTrades,
			r.ProfitFactor.StringFixed(2), r.SharpeRatio.StringFixed(2), r.RecoveryFactor.StringFixed(2),
			r.WinRate.StringFixed(2), yesNo(r.SetFile), yesNo(r.CapitalCurve))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d rows\n", len(rows), total)
}

func renderStrategies(w io.Writer, rows []*models.StrategyFileBundle) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTRATEGY\tEX\tMQ\tCREATED")
	for _, b := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			b.ID, b.StrategyName, yesNo(b.StrategyExFile), yesNo(b.StrategyMqFile),
			b.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// confirm asks a yes/no question on stdin unless assumeYes is set.
func confirm(prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(stdout, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// saveAttachment writes att under dir and returns the written path.
func saveAttachment(dir string, att *view.Attachment) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, view.SafeFileName(att.Name))
	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func readUpload(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > view.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds %d MiB", filepath.Base(path), view.MaxUploadBytes>>20)
	}
	return os.ReadFile(path)
}
