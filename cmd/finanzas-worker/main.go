package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/cli"
	"finanzas/internal/loader"
	"finanzas/internal/log"
	"finanzas/internal/sheets"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting finanzas-worker")
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.LedgerTimeout)
	ledgerClient, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).Create(startCtx, backendCfg)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize ledger", "error", err, "backend", cfg.LedgerBackend)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Spreadsheet export is optional.
	var exporter sheets.ReportExporter
	if cfg.ExportEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleSheetName,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err, "error_type", log.ErrorTypeConfiguration)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	refresher := worker.NewRefreshWorker(loader.New(ledgerClient), repo, exporter, worker.Config{
		Schedule: cfg.RefreshSchedule,
		Timeout:  cfg.RefreshTimeout,
		Location: cfg.Location(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := refresher.Stop(ctx); err != nil {
			logger.Error("Refresh worker stop error", "error", err)
		}
	})

	// Catch up on whatever changed while the worker was down. Exports left
	// over from the last run go first so a ledger outage does not hold them.
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.RefreshTimeout)
	if err := refresher.ExportPending(initCtx); err != nil {
		logger.Error("Startup export failed", "error", err)
	}
	if err := refresher.Refresh(initCtx); err != nil {
		logger.Error("Startup refresh failed", "error", err)
	}
	cancelInit()

	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start refresh worker", "error", err)
		os.Exit(1)
	}

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on the schedule only", "error", err)
		} else {
			defer amqpClient.Close()
			go func() {
				if err := amqpClient.ConsumeLedgerChanges(ctx, refresher.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", "error", err)
				}
			}()
			logger.Info("Consuming ledger change events", "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - refreshing on schedule only", "schedule", cfg.RefreshSchedule)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
