// Package main provides vaultctl, a terminal client for the backtest vault.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/backtest-vault/internal/client"
	"github.com/yourusername/backtest-vault/internal/config"
	"github.com/yourusername/backtest-vault/internal/logger"
	"github.com/yourusername/backtest-vault/internal/view"
)

var (
	configFile string
	apiURL     string
	verbose    bool

	cfg       *config.Config
	appLog    *logrus.Logger
	apiClient *client.Client
	attCache  *view.AttachmentCache

	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides client.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(backtestsCmd, strategiesCmd, watchCmd)
}

var rootCmd = &cobra.Command{
	Use:           "vaultctl",
	Short:         "Browse and manage backtest records and strategy files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(); err != nil {
			return fmt.Errorf("failed to set up: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if apiClient != nil {
			apiClient.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func setup() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	appLog, err = logger.NewLogger(logger.Options{Level: level, Format: "text"})
	if err != nil {
		return err
	}
	appLog.SetOutput(os.Stderr)

	ccfg := client.DefaultConfig()
	ccfg.BaseURL = cfg.Client.BaseURL
	if apiURL != "" {
		ccfg.BaseURL = apiURL
	}
	if cfg.Client.Timeout > 0 {
		ccfg.Timeout = cfg.Client.Timeout
	}
	ccfg.RetryMax = cfg.Client.RetryMax
	ccfg.RateLimit = cfg.Client.RateLimit
	ccfg.Logger = appLog

	apiClient, err = client.New(ccfg)
	if err != nil {
		return err
	}
	attCache = view.NewAttachmentCache(view.DefaultCacheTTL)
	return nil
}
