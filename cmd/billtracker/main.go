package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"billtracker/internal/backup"
	"billtracker/internal/bills"
	"billtracker/internal/cache"
	"billtracker/internal/cli"
	apphttp "billtracker/internal/http"
	applog "billtracker/internal/log"
	"billtracker/internal/metrics"
	"billtracker/internal/share/azure"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)

	weeks := cache.NewWeekCache(52, 10*time.Minute)
	m := metrics.New()
	notifiers := bills.Notifiers{weeks, m}
	amqpClient := cli.ConnectAMQP(logger, cfg)
	if amqpClient != nil {
		notifiers = append(notifiers, amqpClient)
	}
	store := cli.OpenStore(ctx, logger, res, bills.WithNotifier(notifiers))

	var share backup.Target
	if cfg.ShareEnabled() {
		target, err := azure.New(cfg.AzureStorageConnectionString, cfg.AzureShareContainer, logger)
		if err != nil {
			logger.Warn("Azure share disabled, sharing falls back to download", applog.FieldError, err)
		} else {
			share = target
		}
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     store,
		WeekCache: weeks,
		Metrics:   m,
		Share:     share,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager(logger)
	caches.Register(weeks)
	caches.StartCleanup(5 * time.Minute)

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting billtracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"share", share != nil,
		"notifications", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
