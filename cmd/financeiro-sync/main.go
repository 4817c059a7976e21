package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"financeiro/internal/amqp"
	"financeiro/internal/backend"
	"financeiro/internal/cli"
	"financeiro/internal/config"
	"financeiro/internal/log"
	"financeiro/internal/sheets"
	"financeiro/internal/sheets/memory"
	"financeiro/internal/worker"
)

func main() {
	resync := flag.Bool("resync", true, "rebuild the mirror from the local ledger on startup")
	flag.Parse()

	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting financeiro-sync")

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required by the sync worker")
		os.Exit(1)
	}

	var mirror sheets.Mirror
	sheetsClient, err := cli.InitSheets(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if sheetsClient != nil {
		mirror = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memory.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory only")
	}
	syncWorker := worker.NewSyncWorker(mirror)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPPublishTimeout)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
	})

	if *resync {
		// The ledger snapshot already contains every queued change, so the
		// backlog is dropped before the snapshot is read.
		purged, err := amqpClient.Purge()
		if err != nil {
			logger.Error("Failed to purge pending events", log.FieldError, err)
		}
		logger.Info("Performing startup resync...", "purged_events", purged)
		if err := resyncFromLedger(ctx, cfg, logger, syncWorker); err != nil {
			// Don't exit - events keep the mirror current from here on
			logger.Error("Failed startup resync", log.FieldError, err)
		}
	}

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleEvent)
		// Closing the connection during shutdown also ends consumption.
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// resyncFromLedger loads the local ledger and replays it into the mirror.
func resyncFromLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, w *worker.SyncWorker) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer result.Cleanup()

	doc, err := result.Repository.Load(ctx)
	if err != nil {
		return err
	}
	return w.Resync(ctx, doc.Transactions)
}
