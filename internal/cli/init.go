// Package cli provides common CLI initialization utilities shared by
// cmd/financeiro and cmd/financeiro-sync.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financeiro/internal/amqp"
	"financeiro/internal/backend"
	"financeiro/internal/config"
	"financeiro/internal/log"
	"financeiro/internal/services"
	gsheet "financeiro/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and installs it as
// the slog default. An unparseable level falls back to warn.
func SetupLogger(levelName, component string) *log.Logger {
	level, err := log.ParseLevel(levelName)
	if err != nil {
		level = slog.LevelWarn
	}
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Component = component

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLedger opens the configured repository, attaches the AMQP publisher
// when events are enabled and loads the ledger. The caller owns the returned
// service and must Close it.
func InitLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.LedgerService, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithLogger(logger)}
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPPublishTimeout)
		if err != nil {
			// The ledger is usable without the broker; events are best effort.
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
		}
	}

	ledger := services.NewLedgerService(result.Repository, opts...)
	if err := ledger.Load(ctx); err != nil {
		ledger.Close()
		return nil, err
	}
	return ledger, nil
}

// InitSheets creates the Google Sheets client, or returns nil when no
// spreadsheet is configured.
func InitSheets(ctx context.Context, cfg *config.Config) (*gsheet.Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	client, err := gsheet.NewFromConfig(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		ExportSheetName: cfg.GoogleExportSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	return client, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs after the context is cancelled; done is closed once cleanup has
// finished or timeout elapsed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()
		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and shutdown has
// finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
