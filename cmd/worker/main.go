package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roofwise/compliance-assistant/internal/bootstrap"
	"github.com/roofwise/compliance-assistant/internal/config"
	"github.com/roofwise/compliance-assistant/internal/observability/logging"
	"github.com/roofwise/compliance-assistant/internal/observability/metrics"
)

const serviceName = "compliance-worker"

func main() {
	cfg := config.Load()
	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	go serveMetrics(ctx, cfg.WorkerMetricsPort, workerMetrics, logger)
	go purgeSessions(ctx, app, cfg.SessionPurge, logger)

	logger.Info("worker subscribed", slog.String("subject", cfg.NATSSubject))
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if doc, lookupErr := app.Repo.GetByID(processCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(doc.CreatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument(serviceName, time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		logger.Error("worker subscribe failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveMetrics(ctx context.Context, port string, m *metrics.WorkerMetrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}

// purgeSessions sweeps expired gate sessions so abandoned clarifying
// conversations do not accumulate.
func purgeSessions(ctx context.Context, app *bootstrap.App, interval time.Duration, logger *slog.Logger) {
	purger, ok := app.Sessions.(bootstrap.SessionPurger)
	if !ok || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := purger.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session purge failed", slog.Any("error", err))
				continue
			}
			if purged > 0 {
				logger.Info("expired gate sessions purged", slog.Int64("count", purged))
			}
		}
	}
}
