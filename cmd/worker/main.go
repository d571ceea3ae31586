package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrkb/internal/bootstrap"
	"hrkb/internal/config"
	"hrkb/internal/observability/logging"
	"hrkb/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()

	onIngest := func(handlerCtx context.Context, documentID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		err := app.IndexUC.IndexByID(indexCtx, documentID)
		workerMetrics.FinishDocument("worker", "index", time.Since(start), err)
		if err != nil {
			return err
		}
		if doc, getErr := app.Repo.GetDocument(indexCtx, documentID); getErr == nil {
			workerMetrics.ObserveIndexedChunks("worker", doc.ChunkCount)
		}
		return nil
	}
	onDelete := func(handlerCtx context.Context, documentID string) error {
		deleteCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		err := app.IndexUC.RemoveByID(deleteCtx, documentID)
		workerMetrics.FinishDocument("worker", "delete", time.Since(start), err)
		return err
	}

	slog.Info("worker subscribed",
		"ingest_subject", cfg.NATSIngestSubject,
		"delete_subject", cfg.NATSDeleteSubject,
	)
	if err := app.Queue.SubscribeDocumentEvents(ctx, onIngest, onDelete); err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
