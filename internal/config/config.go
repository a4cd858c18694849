// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Addr      string `yaml:"addr" validate:"required"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`

	Engine EngineConfig `yaml:"engine"`
	LLM    LLMConfig    `yaml:"llm"`
	Review ReviewConfig `yaml:"review"`
	Store  StoreConfig  `yaml:"store"`
	Ingest IngestConfig `yaml:"ingest"`
}

// EngineConfig configures the Stockfish pool.
type EngineConfig struct {
	StockfishPath string        `yaml:"stockfish_path" validate:"required"`
	PoolSize      int           `yaml:"pool_size" validate:"min=1,max=16"`
	HashMB        int           `yaml:"hash_mb" validate:"min=1,max=65536"`
	Threads       int           `yaml:"threads" validate:"min=1,max=128"`
	Nice          int           `yaml:"nice" validate:"min=0,max=19"`
	Depth         int           `yaml:"depth" validate:"min=1,max=60"`
	TopN          int           `yaml:"top_n" validate:"min=1,max=10"`
	Timeout       time.Duration `yaml:"timeout" validate:"gte=0"`
}

// LLMConfig selects and configures the model provider. Provider "none"
// disables explanations.
type LLMConfig struct {
	Provider       string        `yaml:"provider" validate:"oneof=gemini openai none"`
	GeminiAPIKey   string        `yaml:"gemini_api_key" validate:"required_if=Provider gemini"`
	GeminiModel    string        `yaml:"gemini_model"`
	GeminiFast     string        `yaml:"gemini_fast_model"`
	OpenAIAPIKey   string        `yaml:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIModel    string        `yaml:"openai_model"`
	OpenAIFast     string        `yaml:"openai_fast_model"`
	RetryAttempts  int           `yaml:"retry_attempts" validate:"min=1,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"gte=0"`
}

// ReviewConfig tunes the review pipeline.
type ReviewConfig struct {
	MaxRetries    int           `yaml:"max_retries" validate:"min=0,max=4"`
	Concurrency   int           `yaml:"concurrency" validate:"min=1,max=32"`
	Jitter        time.Duration `yaml:"jitter" validate:"gte=0"`
	ExplainLabels []string      `yaml:"explain_labels" validate:"dive,oneof=Best Good Inaccuracy Mistake Blunder"`
	MaxRunes      int           `yaml:"max_explanation_runes" validate:"min=100,max=4000"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Kind        string `yaml:"kind" validate:"oneof=memory file postgres"`
	Dir         string `yaml:"dir" validate:"required_if=Kind file"`
	DatabaseURL string `yaml:"database_url" validate:"required_if=Kind postgres"`
}

// IngestConfig enables the PGN drop folder. An empty Dir disables it.
type IngestConfig struct {
	Dir          string        `yaml:"dir"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`
	Workers      int           `yaml:"workers" validate:"min=1,max=8"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:      ":8080",
		LogFormat: "console",
		Engine: EngineConfig{
			StockfishPath: "stockfish",
			PoolSize:      1,
			HashMB:        128,
			Threads:       1,
			Depth:         14,
			TopN:          3,
			Timeout:       30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:       "gemini",
			GeminiModel:    "gemini-2.5-pro",
			GeminiFast:     "gemini-2.5-flash",
			OpenAIModel:    "gpt-4o",
			OpenAIFast:     "gpt-4o-mini",
			RetryAttempts:  3,
			RetryBaseDelay: 300 * time.Millisecond,
		},
		Review: ReviewConfig{
			MaxRetries:    2,
			Concurrency:   4,
			Jitter:        250 * time.Millisecond,
			ExplainLabels: []string{"Inaccuracy", "Mistake", "Blunder"},
			MaxRunes:      700,
		},
		Store: StoreConfig{
			Kind: "memory",
			Dir:  "./data/reviews",
		},
		Ingest: IngestConfig{
			PollInterval: 10 * time.Second,
			Workers:      1,
		},
	}
}

var validate = validator.New()

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides settings from the environment.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Addr)
	if cfg.Addr != "" && !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	str("STOCKFISH_PATH", &cfg.Engine.StockfishPath)
	str("LLM_PROVIDER", &cfg.LLM.Provider)
	str("GEMINI_API_KEY", &cfg.LLM.GeminiAPIKey)
	str("GEMINI_MODEL", &cfg.LLM.GeminiModel)
	str("OPENAI_API_KEY", &cfg.LLM.OpenAIAPIKey)
	str("OPENAI_MODEL", &cfg.LLM.OpenAIModel)
	str("STORE_KIND", &cfg.Store.Kind)
	str("STORE_DIR", &cfg.Store.Dir)
	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("INGEST_DIR", &cfg.Ingest.Dir)
	if v := strings.TrimSpace(getenv("REVIEW_MAX_RETRIES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REVIEW_MAX_RETRIES: %w", err)
		}
		cfg.Review.MaxRetries = n
	}
	return nil
}

// Validate checks field ranges and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
