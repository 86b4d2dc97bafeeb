package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/roofwise/compliance-assistant/internal/adapters/http"
	"github.com/roofwise/compliance-assistant/internal/bootstrap"
	"github.com/roofwise/compliance-assistant/internal/config"
	"github.com/roofwise/compliance-assistant/internal/observability/logging"
	"github.com/roofwise/compliance-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New("compliance-api", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("compliance-api")
	router := httpadapter.NewRouter(app.AskUC, app.IngestUC, app.Repo, httpadapter.RouterOptions{
		Sources:       app.Passages,
		Metrics:       serverMetrics,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		Logger:        logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", slog.Any("error", err))
	}
}
