package main

import (
	"context"
	"os"
	"time"

	"billtracker/internal/backup"
	"billtracker/internal/cli"
	"billtracker/internal/config"
	applog "billtracker/internal/log"
	"billtracker/internal/sheets"
	gsheet "billtracker/internal/sheets/google"
	memsheet "billtracker/internal/sheets/memory"
	"billtracker/internal/share/azure"
	"billtracker/internal/share/local"
	"billtracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting billtracker-worker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	store := cli.OpenStore(ctx, logger, res)

	var mirror sheets.BillMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	opts := worker.Options{
		SyncInterval:   cfg.SyncInterval,
		BackupInterval: cfg.BackupInterval,
		Download:       local.New(cfg.DownloadDir),
	}
	if cfg.ShareEnabled() {
		target, err := azure.New(cfg.AzureStorageConnectionString, cfg.AzureShareContainer, logger)
		if err != nil {
			logger.Warn("Azure share disabled, backups go to the download directory", applog.FieldError, err)
		} else {
			opts.Share = backup.Target(target)
		}
	}
	w := worker.NewSyncWorker(store, mirror, opts, logger)

	amqpClient := cli.ConnectAMQP(logger, cfg)
	var consumer worker.Consumer
	if amqpClient != nil {
		consumer = amqpClient
	} else {
		logger.Info("Skipping AMQP message consumption, relying on periodic sync")
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := w.StartupSync(runCtx); err != nil {
		logger.Error("Failed startup sync", applog.FieldError, err)
	}

	if err := w.Run(runCtx, consumer); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker shutdown complete")
}
