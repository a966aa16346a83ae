package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"brand-workflow-service/internal/archive"
	"brand-workflow-service/internal/broadcast"
	"brand-workflow-service/internal/generator"
	"brand-workflow-service/internal/pipeline"
	"brand-workflow-service/internal/service"
	"brand-workflow-service/internal/store"
	httptransport "brand-workflow-service/internal/transport/http"
	"brand-workflow-service/internal/workflow"

	_ "brand-workflow-service/docs"
)

// @title Brand Workflow Service API
// @version 1.0.0
// @description Coordinates brand identity workflow jobs and streams their progress in real time.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"))

	addr := envOr("ADDR", ":8000")
	maxJobs := envIntOr("MAX_JOBS", store.DefaultMaxJobs)
	jobTimeout := envDurOr("JOB_TIMEOUT", workflow.DefaultJobTimeout)

	pipe, err := buildPipeline(os.Getenv("PIPELINE_CONFIG"))
	if err != nil {
		logger.Error("pipeline config", "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub()
	jobs := store.New(
		store.WithMaxJobs(maxJobs),
		store.WithEvictHook(hub.Retire),
		store.WithLogger(logger),
	)

	archiver, cleanup, err := buildArchiver(ctx, logger)
	if err != nil {
		logger.Error("archive setup", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	manager := workflow.NewManager(jobs, hub, pipe,
		workflow.WithTimeout(jobTimeout),
		workflow.WithArchiver(archiver),
		workflow.WithLogger(logger),
	)
	jobSvc := service.NewJobService(jobs, hub, manager, logger)
	handler := httptransport.NewHandler(jobSvc, logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           httptransport.Routes(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", addr, "job_timeout", jobTimeout.String(), "max_jobs", maxJobs)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("executor shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func buildPipeline(configPath string) (*pipeline.Pipeline, error) {
	if configPath == "" {
		return generator.Default()
	}
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Build(generator.Registry())
}

// buildArchiver wires optional terminal-record persistence. ARCHIVE_BACKEND
// selects "redis" (REDIS_ADDR) or "postgres" (POSTGRES_DSN); empty disables
// archiving.
func buildArchiver(ctx context.Context, logger *slog.Logger) (archive.Archiver, func(), error) {
	switch backend := envOr("ARCHIVE_BACKEND", ""); backend {
	case "":
		return nil, func() {}, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: mustEnv("REDIS_ADDR", logger)})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, func() {}, err
		}
		logger.Info("archive enabled", "backend", "redis")
		return archive.NewRedisArchive(rdb), func() { _ = rdb.Close() }, nil
	case "postgres":
		pool, err := archive.NewPool(ctx, mustEnv("POSTGRES_DSN", logger))
		if err != nil {
			return nil, func() {}, err
		}
		logger.Info("archive enabled", "backend", "postgres")
		return archive.NewPostgresArchive(pool), pool.Close, nil
	default:
		logger.Warn("unknown archive backend, archiving disabled", "backend", backend)
		return nil, func() {}, nil
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func mustEnv(key string, logger *slog.Logger) string {
	v := os.Getenv(key)
	if v == "" {
		logger.Error("missing env", "key", key)
		os.Exit(1)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDurOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
