package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/backtest-vault/internal/models"
	"github.com/yourusername/backtest-vault/internal/view"
)

const requestTimeout = 2 * time.Minute

// tableFlags are the filter and sort options shared by list and watch.
type tableFlags struct {
	symbol   string
	typ      string
	strategy string
	sortKey  string
	desc     bool
}

func (f *tableFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Filter by symbol (substring, case-insensitive)")
	cmd.Flags().StringVar(&f.typ, "type", "", "Filter by symbol type")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Filter by strategy name")
	cmd.Flags().StringVar(&f.sortKey, "sort", "", "Sort column (id, symbol, symbol_type, strategy_name, period_test, total_trades, profit_factor, sharpe_ratio, recovery_factor, win_rate)")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "Sort descending")
}

func (f *tableFlags) apply(tbl *view.BacktestTable) error {
	key, err := view.ParseSortKey(f.sortKey)
	if err != nil {
		return err
	}
	tbl.SetFilters(view.Filters{Symbol: f.symbol, SymbolType: f.typ, StrategyName: f.strategy})
	tbl.SetSort(key, f.desc)
	return nil
}

// recordFlags carry every field of a backtest for create and update.
type recordFlags struct {
	symbol, typ, strategy           string
	period, pf, sharpe, rf, winRate string
	trades                          int64
	setFile, curve                  string
}

func (f *recordFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Symbol (stored upper-case)")
	cmd.Flags().StringVar(&f.typ, "type", models.SymbolTypeForex, "Symbol type")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Strategy name")
	cmd.Flags().StringVar(&f.period, "period", "0", "Test period in years")
	cmd.Flags().Int64Var(&f.trades, "trades", 0, "Total trades")
	cmd.Flags().StringVar(&f.pf, "pf", "0", "Profit factor")
	cmd.Flags().StringVar(&f.sharpe, "sharpe", "0", "Sharpe ratio")
	cmd.Flags().StringVar(&f.rf, "recovery", "0", "Recovery factor")
	cmd.Flags().StringVar(&f.winRate, "win-rate", "0", "Win rate percentage (0-100)")
	cmd.Flags().StringVar(&f.setFile, "set-file", "", "Path to the .set parameter file")
	cmd.Flags().StringVar(&f.curve, "capital-curve", "", "Path to the capital curve image")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("strategy")
}

func (f *recordFlags) record() (*models.BacktestRecord, error) {
	rec := &models.BacktestRecord{
		Symbol:       models.NormalizeSymbol(f.symbol),
		SymbolType:   f.typ,
		StrategyName: f.strategy,
		TotalTrades:  f.trades,
	}

	numbers := []struct {
		flag string
		raw  string
		dst  *decimal.Decimal
	}{
		{"period", f.period, &rec.PeriodTest},
		{"pf", f.pf, &rec.ProfitFactor},
		{"sharpe", f.sharpe, &rec.SharpeRatio},
		{"recovery", f.rf, &rec.RecoveryFactor},
		{"win-rate", f.winRate, &rec.WinRate},
	}
	for _, n := range numbers {
		d, err := decimal.NewFromString(n.raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %q is not a number", n.flag, n.raw)
		}
		*n.dst = d
	}

	if f.setFile != "" {
		data, err := readUpload(f.setFile)
		if err != nil {
			return nil, err
		}
		if rec.SetFile, err = view.EncodeSetFile(filepath.Base(f.setFile), data); err != nil {
			return nil, err
		}
	}
	if f.curve != "" {
		data, err := readUpload(f.curve)
		if err != nil {
			return nil, err
		}
		if rec.CapitalCurve, err = view.EncodeCapitalCurve(data); err != nil {
			return nil, err
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func parseIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", models.ErrInvalidID, arg)
	}
	return id, nil
}

// loadBacktests fetches the collection into a fresh table.
func loadBacktests(ctx context.Context) (*view.BacktestTable, error) {
	tbl := view.NewBacktestTable(apiClient, attCache, appLog)
	if err := tbl.Refresh(ctx); err != nil {
		return nil, err
	}
	return tbl, nil
}

var (
	listFlags   tableFlags
	createFlags recordFlags
	updateFlags recordFlags
	assumeYes   bool
	outDir      string
)

var backtestsCmd = &cobra.Command{
	Use:     "backtests",
	Aliases: []string{"bt"},
	Short:   "Manage backtest records",
}

var backtestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backtests with optional filters and sort",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		tbl, err := loadBacktests(ctx)
		if err != nil {
			return err
		}
		if err := listFlags.apply(tbl); err != nil {
			return err
		}
		renderBacktests(stdout, tbl.Visible(), tbl.Len())
		return nil
	},
}

var backtestsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a new backtest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := createFlags.record()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		id, err := apiClient.CreateBacktest(ctx, rec)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Backtest %d saved\n", id)
		return nil
	},
}

var backtestsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace every field of a backtest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		rec, err := updateFlags.record()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		if err := apiClient.UpdateBacktest(ctx, id, rec); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Backtest %d updated\n", id)
		return nil
	},
}

var backtestsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backtest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIDArg(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
		defer cancel()

		tbl, err := loadBacktests(ctx)
		if err != nil {
			return err
		}
		row, err := tbl.Row(id)
		if err != nil {
			return fmt.Errorf("backtest %d: %w", id, err)
		}
		if !confirm(fmt.Sprintf("Delete backtest %d (%s, %s)?", id, row.Symbol, row.StrategyName), assumeYes) {
			fmt.Fprintln(stdout, "Aborted")
			return nil
		}
		if err := tbl.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Backtest %d deleted\n", id)
		return nil
	},
}

func attachmentCmd(use, short string, get func(*view.BacktestTable, int64) (*view.Attachment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			tbl, err := loadBacktests(ctx)
			if err != nil {
				return err
			}
			att, err := get(tbl, id)
			if err != nil {
				return fmt.Errorf("backtest %d: %w", id, err)
			}
			path, err := saveAttachment(outDir, att)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Saved %s (%s, %d bytes)\n", path, att.MediaType, len(att.Data))
			return nil
		},
	}
}

var (
	backtestsSetCmd   = attachmentCmd("download-set", "Download the parameter set file", (*view.BacktestTable).SetFile)
	backtestsCurveCmd = attachmentCmd("curve", "Save the capital curve image for preview", (*view.BacktestTable).CapitalCurve)
)

func init() {
	listFlags.bind(backtestsListCmd)
	createFlags.bind(backtestsCreateCmd)
	updateFlags.bind(backtestsUpdateCmd)
	backtestsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	for _, c := range []*cobra.Command{backtestsSetCmd, backtestsCurveCmd} {
		c.Flags().StringVar(&outDir, "dir", ".", "Directory to write the file to")
	}

	backtestsCmd.AddCommand(
		backtestsListCmd,
		backtestsCreateCmd,
		backtestsUpdateCmd,
		backtestsDeleteCmd,
		backtestsSetCmd,
		backtestsCurveCmd,
	)
}
