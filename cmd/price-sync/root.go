package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shopify-price-manager/internal/adapters/shopify"
	"shopify-price-manager/internal/adapters/sqlstore"
	"shopify-price-manager/internal/app/usecases"
	"shopify-price-manager/internal/config"
	"shopify-price-manager/internal/domain/model"
	"shopify-price-manager/internal/infra/database"
	"shopify-price-manager/internal/infra/httpclient"
	"shopify-price-manager/internal/infra/telemetry"
	"shopify-price-manager/internal/logging"
)

const (
	exitFailure      = 1
	exitCommandError = 2
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitCommandError
}

var outputFormats = []string{"text", "json"}

type rootOptions struct {
	format string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "price-sync",
		Short:         "Sync Shopify compare-at prices from recent sales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(outputFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, outputFormats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newStoresCommand(opts))
	cmd.AddCommand(newLogsCommand(opts))
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

// application is everything a command needs, opened from the environment.
type application struct {
	cfg      *config.Config
	logger   logging.LoggerService
	storage  *sqlstore.Store
	shutdown func(context.Context) error
}

func openApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	db, dialect, err := database.Open(ctx, cfg.Database, cfg.Mysql)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	storage, err := sqlstore.New(db, dialect)
	if err != nil {
		_ = db.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		_ = shutdown(ctx)
		return nil, err
	}
	logger.Log("database ready", zap.String("driver", dialect))

	return &application{cfg: cfg, logger: logger, storage: storage, shutdown: shutdown}, nil
}

func (a *application) Close(ctx context.Context) {
	if err := a.storage.Close(); err != nil {
		a.logger.LogWarning("close database", zap.Error(err))
	}
	if err := a.shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.LogWarning("shutdown telemetry", zap.Error(err))
	}
}

// runner wires one Shopify gateway per store run.
func (a *application) runner() *usecases.Runner {
	gateways := func(store model.Store) usecases.Gateway {
		return shopify.NewGateway(store.Credential(), a.cfg.Shopify, httpclient.New(a.cfg.Shopify.Timeout), a.logger)
	}
	syncer := usecases.NewStoreSyncer(a.storage, gateways, a.logger)
	return usecases.NewRunner(a.storage, syncer, a.cfg.Sync, a.logger)
}

// withApplication opens the application around a command body.
func withApplication(fn func(cmd *cobra.Command, args []string, app *application) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApplication(cmd.Context())
		if err != nil {
			return &exitError{code: exitCommandError, err: err}
		}
		defer app.Close(cmd.Context())
		return fn(cmd, args, app)
	}
}
