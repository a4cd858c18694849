package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/app"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/config"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/httpapi"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/ingest"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/logx"
)

func main() {
	var (
		configPath    = flag.String("config", os.Getenv("REVIEW_CONFIG"), "YAML config file (optional)")
		addr          = flag.String("addr", "", "listen address (overrides config)")
		logLevel      = flag.String("log-level", "info", "log level")
		reviewTimeout = flag.Duration("review-timeout", 10*time.Minute, "upper bound for one review request")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logx.NewLogger()
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	logger := logx.New(cfg.LogFormat, *logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire service")
	}
	logger.Info().
		Str("store", cfg.Store.Kind).
		Str("llm", cfg.LLM.Provider).
		Int("engines", cfg.Engine.PoolSize).
		Int("depth", cfg.Engine.Depth).
		Msg("service ready")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(logger, a.Service, a.Pool, httpapi.Options{ReviewTimeout: *reviewTimeout}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      *reviewTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api server")
		}
	}()

	worker, err := ingest.NewWorker(ingest.Config{
		WatchDir:     cfg.Ingest.Dir,
		PollInterval: cfg.Ingest.PollInterval,
		Workers:      cfg.Ingest.Workers,
		Logger:       logger,
	}, a.Service)
	if err != nil {
		logger.Fatal().Err(err).Msg("create ingest worker")
	}
	if worker != nil {
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("ingest worker stopped")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}
	if err := a.Close(); err != nil {
		logger.Warn().Err(err).Msg("close components")
	}
	logger.Info().Msg("shutdown complete")
}
