// Command pathodex serves the disease dataset explorer: the JSON API, the
// embedded browser UI, and the asynchronous export pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pathodex/internal/adapters/explorer"
	"pathodex/internal/blob"
	"pathodex/internal/config"
	"pathodex/internal/core"
	"pathodex/internal/ingest"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration (defaults to PATHODEX_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := core.OpenPersistentStore(cfg.Storage.Driver, cfg.Storage.SQLitePath, cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}
	defer func() { _ = store.Close() }()

	blobStore, err := blob.Open(ctx, blob.Options{
		Driver: cfg.Blob.Driver,
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Region:    cfg.Blob.S3.Region,
			Bucket:    cfg.Blob.S3.Bucket,
			Endpoint:  cfg.Blob.S3.Endpoint,
			PathStyle: cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	metrics, err := core.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts := core.Options{Metrics: metrics, Logger: logger}
	if cfg.TraceLog != "" {
		traceFile, err := os.OpenFile(cfg.TraceLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open trace log: %w", err)
		}
		defer func() { _ = traceFile.Close() }()
		opts.Tracer = core.NewJSONTracer(traceFile)
	}

	svc := core.NewService(store, opts)
	if err := loadDataset(ctx, svc, cfg.DatasetPath, logger); err != nil {
		return err
	}

	worker := explorer.NewWorker(svc, blobStore, svc, logger)
	worker.Start()

	handler := &explorer.Handler{Service: svc, Exports: worker}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := worker.Stop(shutdownCtx); err != nil {
		logger.Warn("export worker shutdown", zap.Error(err))
	}
	return <-errCh
}

// loadDataset ingests the CSV when present and otherwise falls back to the
// persisted snapshot, so restarts survive a missing source file.
func loadDataset(ctx context.Context, svc *core.Service, path string, logger *zap.Logger) error {
	result, err := ingest.LoadFile(path, logger)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load dataset %s: %w", path, err)
		}
		restored, rehydrateErr := svc.Rehydrate(ctx)
		if rehydrateErr != nil {
			return fmt.Errorf("dataset %s missing and no snapshot available: %w", path, rehydrateErr)
		}
		logger.Info("dataset file missing, restored snapshot", zap.String("path", path), zap.Int("diseases", restored))
		return nil
	}
	if result.Skipped > 0 {
		logger.Warn("dataset rows skipped", zap.Int("skipped", result.Skipped))
	}
	return svc.LoadCatalog(ctx, result.Catalog)
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)
	return zapCfg.Build()
}
