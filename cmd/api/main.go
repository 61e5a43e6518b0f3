package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audiototext-backend/internal/api"
	"audiototext-backend/internal/cleanup"
	"audiototext-backend/internal/config"
	"audiototext-backend/internal/delivery"
	"audiototext-backend/internal/job"
	"audiototext-backend/internal/mail"
	"audiototext-backend/internal/metrics"
	"audiototext-backend/internal/stt"
	"audiototext-backend/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("incomplete configuration, deliveries may fail", "error", err)
	}

	metrics.MustRegister()

	store := job.NewStore()
	cleaner := cleanup.NewManager(cfg.Upload.TempDir, cfg.Cleanup.SweepMaxAge)

	// Reclaim whatever a previous crash left behind, before any job
	// can be created.
	if err := cleaner.Sweep(store.ActiveTempPaths()); err != nil {
		slog.Warn("startup sweep failed", "error", err)
	}

	var engine stt.Engine
	switch cfg.STT.Backend {
	case "local":
		engine = stt.NewLocalEngine(stt.LocalConfig{BaseURL: cfg.STT.LocalBaseURL})
	default:
		engine = stt.NewOpenAIEngine(stt.OpenAIConfig{
			APIKey:  cfg.STT.OpenAIKey,
			BaseURL: cfg.STT.OpenAIBaseURL,
			Model:   cfg.STT.OpenAIModel,
		})
	}

	transport := mail.NewSMTPTransport(cfg.SMTP)
	deliverer := delivery.NewService(store, transport, cfg.Delivery)

	poolCtx, stopPool := context.WithCancel(context.Background())
	pool := worker.NewPool(store, engine, deliverer, cleaner, cfg.Worker)
	pool.Start(poolCtx)

	router := api.NewRouter(store, cfg)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  5 * time.Minute, // uploads can be slow
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "engine", engine.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}

	stopPool()
	pool.Wait()
	slog.Info("server stopped")
}
