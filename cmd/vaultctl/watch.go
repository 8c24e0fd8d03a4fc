package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/view"
)

var (
	watchFlags   tableFlags
	watchRefresh string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the backtest table on screen, refreshing on every change",
	Long: `Renders the backtest table and re-renders it whenever the server reports a
change to the backtest collection. --refresh adds a cron-scheduled refresh
(for example "@every 30s" or "*/5 * * * *").`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx)
	},
}

func init() {
	watchFlags.bind(watchCmd)
	watchCmd.Flags().StringVar(&watchRefresh, "refresh", "", "Cron schedule for periodic refreshes")
}

func runWatch(ctx context.Context) error {
	tbl := view.NewBacktestTable(apiClient, attCache, appLog)
	if err := watchFlags.apply(tbl); err != nil {
		return err
	}

	render := func() {
		fmt.Fprint(stdout, "\033[H\033[2J")
		fmt.Fprintf(stdout, "backtests @ %s\n\n", time.Now().Format("15:04:05"))
		renderBacktests(stdout, tbl.Visible(), tbl.Len())
	}

	if err := tbl.Refresh(ctx); err != nil {
		return err
	}
	render()

	signals := make(chan struct{}, 1)
	notify := func() {
		select {
		case signals <- struct{}{}:
		default:
		}
	}

	if watchRefresh != "" {
		sched := cron.New(cron.WithLocation(time.UTC))
		if _, err := sched.AddFunc(watchRefresh, notify); err != nil {
			return fmt.Errorf("invalid --refresh schedule %q: %w", watchRefresh, err)
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()
	}

	feed, err := apiClient.Subscribe(ctx)
	if err != nil {
		if watchRefresh == "" {
			return err
		}
		appLog.WithError(err).Warn("Event feed unavailable, retrying in the background")
	}
	go followEvents(ctx, apiClient.Subscribe, feed, notify, feedRetryMin, feedRetryMax, appLog)

	err = tbl.Watch(ctx, signals, render)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

const (
	feedRetryMin = time.Second
	feedRetryMax = 30 * time.Second
)

// followEvents turns backtest events into refresh signals. When the feed ends
// before ctx does, it resubscribes with exponential backoff and signals one
// refresh after reconnecting, since changes may have been missed meanwhile.
func followEvents(ctx context.Context, subscribe func(context.Context) (<-chan events.Event, error),
	feed <-chan events.Event, notify func(), minWait, maxWait time.Duration, log *logrus.Logger) {
	attempt := 0
	for {
		if feed != nil {
			for ev := range feed {
				if ev.Collection == events.CollectionBacktest {
					notify()
				}
			}
			if ctx.Err() != nil {
				return
			}
			log.Warn("Event feed lost, reconnecting")
			feed = nil
		}

		wait := retryablehttp.DefaultBackoff(minWait, maxWait, attempt, nil)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		next, err := subscribe(ctx)
		if err != nil {
			attempt++
			log.WithError(err).WithField("retry_in", retryablehttp.DefaultBackoff(minWait, maxWait, attempt, nil).String()).
				Warn("Event feed reconnect failed")
			continue
		}
		attempt = 0
		feed = next
		log.Info("Event feed reconnected")
		notify()
	}
}
