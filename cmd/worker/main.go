package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/bootstrap"
	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/observability/logging"
	"github.com/kirillkom/assignment-analyzer/internal/observability/metrics"
)

const dispatchTimeout = 5 * time.Minute

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAssignmentSubmitted(ctx, func(handlerCtx context.Context, assignmentID int64) error {
		dispatchCtx, cancel := context.WithTimeout(handlerCtx, dispatchTimeout)
		defer cancel()

		workerMetrics.StartDispatch()
		started := time.Now()
		err := app.DispatchUC.DispatchByID(dispatchCtx, assignmentID)
		duration := time.Since(started)
		workerMetrics.FinishDispatch("worker", duration, err)

		if err != nil {
			slog.Error("analysis_dispatch_failed",
				"assignment_id", assignmentID,
				"duration_ms", duration.Milliseconds(),
				"error", err,
			)
			return err
		}
		slog.Info("analysis_dispatched",
			"assignment_id", assignmentID,
			"duration_ms", duration.Milliseconds(),
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
