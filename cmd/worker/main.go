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

	"github.com/kirillkom/knou-assistant/internal/bootstrap"
	"github.com/kirillkom/knou-assistant/internal/config"
	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/observability/logging"
	"github.com/kirillkom/knou-assistant/internal/observability/metrics"
)

const (
	service    = "worker"
	jobTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestJobs(ctx, func(handlerCtx context.Context, job domain.IngestJob) error {
		workerMetrics.StartJob()
		started := time.Now()
		if !job.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(service, started.Sub(job.EnqueuedAt))
		}

		jobCtx, cancel := context.WithTimeout(handlerCtx, jobTimeout)
		defer cancel()
		report, err := app.Index.IndexJob(jobCtx, job)
		workerMetrics.RecordIndexReport(service, report.Indexed, report.Skipped, report.FailedBatches)
		workerMetrics.FinishJob(service, time.Since(started), err)
		if err != nil {
			return err
		}
		logger.Info("ingest_job_done",
			"path", job.Path,
			"type", string(job.Type),
			"indexed", report.Indexed,
			"skipped", report.Skipped,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
