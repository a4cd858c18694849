package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefault_NeedsOnlyAKey(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "GeminiAPIKey") {
		t.Errorf("Validate() = %v, want missing gemini key", err)
	}
	cfg.LLM.GeminiAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_FileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "review.yaml")
	data := `
addr: ":9000"
engine:
  stockfish_path: /usr/games/stockfish
  depth: 18
  timeout: 45s
llm:
  provider: openai
  openai_api_key: sk-test
review:
  max_retries: 0
  concurrency: 8
  explain_labels: [Mistake, Blunder]
store:
  kind: file
  dir: /tmp/reviews
ingest:
  dir: /srv/drop
  poll_interval: 1m
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"PORT", "STOCKFISH_PATH", "LLM_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL",
		"OPENAI_API_KEY", "OPENAI_MODEL", "STORE_KIND", "STORE_DIR", "DATABASE_URL", "REVIEW_MAX_RETRIES", "INGEST_DIR"} {
		t.Setenv(k, "")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Addr = ":9000"
	want.Engine.StockfishPath = "/usr/games/stockfish"
	want.Engine.Depth = 18
	want.Engine.Timeout = 45 * time.Second
	want.LLM.Provider = "openai"
	want.LLM.OpenAIAPIKey = "sk-test"
	want.Review.MaxRetries = 0
	want.Review.Concurrency = 8
	want.Review.ExplainLabels = []string{"Mistake", "Blunder"}
	want.Store = StoreConfig{Kind: "file", Dir: "/tmp/reviews"}
	want.Ingest = IngestConfig{Dir: "/srv/drop", PollInterval: time.Minute, Workers: 1}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  depht: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"retries above cap", func(c *Config) { c.Review.MaxRetries = 5 }, "MaxRetries"},
		{"negative retries", func(c *Config) { c.Review.MaxRetries = -1 }, "MaxRetries"},
		{"zero concurrency", func(c *Config) { c.Review.Concurrency = 0 }, "Concurrency"},
		{"too much concurrency", func(c *Config) { c.Review.Concurrency = 33 }, "Concurrency"},
		{"unknown label", func(c *Config) { c.Review.ExplainLabels = []string{"Excellent"} }, "ExplainLabels"},
		{"postgres without url", func(c *Config) { c.Store.Kind = "postgres" }, "DatabaseURL"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "claude" }, "Provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LLM.GeminiAPIKey = "k"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Validate() = %v, want failure on %s", err, tt.field)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":               "7000",
		"GEMINI_API_KEY":     "g-key",
		"DATABASE_URL":       "postgres://x",
		"REVIEW_MAX_RETRIES": "3",
	}
	cfg := Default()
	if err := applyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" || cfg.LLM.GeminiAPIKey != "g-key" || cfg.Store.DatabaseURL != "postgres://x" || cfg.Review.MaxRetries != 3 {
		t.Errorf("applyEnv = %+v", cfg)
	}

	env["REVIEW_MAX_RETRIES"] = "lots"
	if err := applyEnv(&cfg, func(k string) string { return env[k] }); err == nil {
		t.Error("expected error for non-numeric retries")
	}
}
