// Package main provides the entry point for the backtest vault API server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/backtest-vault/internal/api"
	"github.com/yourusername/backtest-vault/internal/config"
	"github.com/yourusername/backtest-vault/internal/database"
	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/health"
	"github.com/yourusername/backtest-vault/internal/logger"
	"github.com/yourusername/backtest-vault/internal/metrics"
	"github.com/yourusername/backtest-vault/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default ./config/config.yaml if present)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "vault-server",
	Short: "Backtest vault API server",
	Long:  `Stores backtest results and strategy file bundles and serves them over a JSON API.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vault-server %s (%s)\n", Version, GitCommit)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore connects the configured driver and returns its repositories,
// a pinger for readiness and a close func.
func openStore(ctx context.Context, cfg *config.Config, appLog *logrus.Logger) (*repository.Repositories, health.DatabasePinger, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		repos, err := repository.NewSQLiteRepositories(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		appLog.WithField("path", cfg.Database.SQLitePath).Info("SQLite store opened")
		return repos, db, func() {
			if err := db.Close(); err != nil {
				appLog.WithError(err).Error("Failed to close SQLite store")
			}
		}, nil

	default:
		db, err := database.Initialize(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		if cfg.Metrics.Enabled {
			metrics.RegisterPoolStats(func() (int32, int32, int32) {
				s := db.Stats()
				return s.AcquiredConns(), s.IdleConns(), s.TotalConns()
			})
		}
		appLog.WithFields(logrus.Fields{
			"host":     cfg.Database.Host,
			"database": cfg.Database.Name,
		}).Info("Database connection established")
		return repos, db, db.Close, nil
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	appLog, err := logger.NewLogger(logger.Options{
		Level:       cfg.App.LogLevel,
		Format:      cfg.Log.Format,
		Environment: cfg.App.Environment,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"driver":      cfg.Database.Driver,
		"version":     Version,
	}).Info("Backtest vault starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	repos, pinger, closeStore, err := openStore(ctx, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	if cfg.Metrics.Enabled {
		repos = repository.Instrument(repos)
	}

	hub := events.NewHub(appLog, cfg.Server.AllowedOrigins)
	defer hub.Close()

	checker := health.NewChecker(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Logger:      appLog,
		DB:          pinger,
	})

	srv, err := api.NewServer(api.Deps{
		Config: cfg,
		Repos:  repos,
		Events: hub,
		Health: checker,
		Logger: appLog,
		Audit:  logger.NewAuditLogger(appLog),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)

	if cfg.Server.GRPCHealthPort > 0 {
		grpcHealth := health.NewGRPCServer(checker, cfg.App.Name, health.DefaultProbeInterval, appLog)
		g.Go(func() error { return grpcHealth.ListenAndServe(gctx, cfg.Server.GRPCHealthPort) })
		g.Go(func() error {
			<-gctx.Done()
			grpcHealth.Stop()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("Shutting down")
		checker.SetReady(false)
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	checker.SetReady(true)
	appLog.WithField("port", cfg.Server.Port).Info("Backtest vault ready")

	if err := g.Wait(); err != nil {
		appLog.WithError(err).Error("Server stopped with error")
		return err
	}
	appLog.Info("Backtest vault stopped")
	return nil
}
