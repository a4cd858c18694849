// Package app assembles the review service from configuration. The API server
// and the command line tools share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/config"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eco"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/review"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config  config.Config
	Pool    *eval.Pool
	Store   store.Store
	Service *review.Service

	closers []func() error
}

// OpenStore opens the backend selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(cfg.Dir)
	case "postgres":
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// NewProvider builds the model provider: a fast and a reasoning endpoint behind
// transport retries. It returns nil when cfg.Provider is "none".
func NewProvider(ctx context.Context, cfg config.LLMConfig, log zerolog.Logger) (llm.Provider, func() error, error) {
	retry := llm.RetryConfig{
		Attempts: cfg.RetryAttempts,
		Base:     cfg.RetryBaseDelay,
		Logger:   log,
	}
	noop := func() error { return nil }

	switch cfg.Provider {
	case "none", "":
		return nil, noop, nil
	case "openai":
		router := llm.Router{
			Reasoning: llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel),
			Fast:      llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIFast),
		}
		return llm.NewRetrying(router, retry), noop, nil
	case "gemini":
		reasoning, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		fast, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiFast)
		if err != nil {
			_ = reasoning.Close()
			return nil, noop, err
		}
		closeAll := func() error { return errors.Join(fast.Close(), reasoning.Close()) }
		return llm.NewRetrying(llm.Router{Fast: fast, Reasoning: reasoning}, retry), closeAll, nil
	default:
		return nil, noop, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ReviewConfig translates the file settings into review.Config. A configured
// max_retries of 0 means a single attempt.
func ReviewConfig(cfg config.Config) (review.Config, error) {
	labels := make([]classify.Label, 0, len(cfg.Review.ExplainLabels))
	for _, s := range cfg.Review.ExplainLabels {
		l, err := classify.ParseLabel(s)
		if err != nil {
			return review.Config{}, err
		}
		labels = append(labels, l)
	}
	retries := cfg.Review.MaxRetries
	if retries == 0 {
		retries = -1
	}
	return review.Config{
		Depth:         cfg.Engine.Depth,
		TopN:          cfg.Engine.TopN,
		MaxRetries:    retries,
		MaxRunes:      cfg.Review.MaxRunes,
		Concurrency:   cfg.Review.Concurrency,
		Jitter:        cfg.Review.Jitter,
		ExplainLabels: labels,
	}, nil
}

// New wires the engine pool, store, provider and review service.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg}

	rc, err := ReviewConfig(cfg)
	if err != nil {
		return nil, err
	}

	a.Pool = eval.NewPool(eval.PoolConfig{
		Engine: eval.EngineConfig{
			StockfishPath: cfg.Engine.StockfishPath,
			Logger:        log.With().Str("component", "engine").Logger(),
			HashMB:        cfg.Engine.HashMB,
			Threads:       cfg.Engine.Threads,
			Nice:          cfg.Engine.Nice,
			Timeout:       cfg.Engine.Timeout,
		},
		Size: cfg.Engine.PoolSize,
	})
	a.closers = append(a.closers, a.Pool.Close)

	a.Store, err = OpenStore(ctx, cfg.Store)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}
	a.closers = append(a.closers, a.Store.Close)

	provider, closeProvider, err := NewProvider(ctx, cfg.LLM, log.With().Str("component", "llm").Logger())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	a.closers = append(a.closers, closeProvider)
	if provider == nil {
		log.Warn().Msg("no llm provider configured, explanations disabled")
	}

	rc.Engines = review.FromPool(a.Pool)
	rc.Store = a.Store
	rc.Provider = provider
	rc.Openings = eco.Default()
	rc.Logger = log
	a.Service, err = review.NewService(rc)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases everything New opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
