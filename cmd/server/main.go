// Command server is the CLI entrypoint for the ingestion/analysis
// backend, grounded on the teacher's cmd/digest-bot/main.go (config
// load, signal-aware context, zerolog setup) but routed through a
// spf13/cobra command tree the way TobiSchelling-AICrawler's
// cmd/aicrawler/main.go structures its serve/collect/run subcommands,
// since this backend's entrypoint needs distinct serve and migrate
// modes rather than one flag.Parse() mode switch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/channelintel/backend/internal/app"
	"github.com/channelintel/backend/internal/config"
	"github.com/channelintel/backend/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "channelintel-backend",
		Short: "Channel ingestion, link resolution, and topic/insight analysis backend",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())

	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, bridging to Postgres, the LLM provider, and Telegram",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg.Env, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, &logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			defer a.Close()

			group, groupCtx := errgroup.WithContext(ctx)

			group.Go(func() error {
				return a.RunTelegram(groupCtx)
			})

			group.Go(func() error {
				return a.Serve(groupCtx)
			})

			if err := group.Wait(); err != nil && groupCtx.Err() == nil {
				return fmt.Errorf("serve: %w", err)
			}

			logger.Info().Msg("server stopped")

			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := newLogger(cfg.Env, cfg.LogLevel)

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			db, err := storage.New(ctx, cfg.PostgresDSN, &logger)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			logger.Info().Msg("migrations applied")

			return nil
		},
	}
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	if appEnv == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
