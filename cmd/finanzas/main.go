package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/loader"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
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

	// Snapshot history is read-only here; the worker writes it.
	snapshots := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer snapshots.Close()

	var publisher amqp.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger changes will not be announced", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	ld := loader.New(ledgerClient)
	reports := cache.NewReports(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reports)
	cacheManager.StartCleanup(cfg.CacheTTL)

	dashboard := services.NewDashboardService(ledgerClient, ld, reports, snapshots, services.DashboardOptions{
		MaxAge:   cfg.LedgerMaxAge,
		Location: cfg.Location(),
	})
	ledgerService := services.NewLedgerService(ledgerClient, ld, reports, publisher)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Dashboard:      dashboard,
		Ledger:         ledgerService,
		TrustedProxies: cfg.TrustedProxies,
		EnableMetrics:  cfg.EnableMetrics,
		DefaultWindow:  analytics.Window(cfg.DefaultWindow),
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
	})

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.LedgerBackend,
		"amqp", publisher != nil,
		"metrics", cfg.EnableMetrics)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
