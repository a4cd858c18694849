package app

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/config"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

func TestReviewConfig(t *testing.T) {
	cfg := config.Default()
	rc, err := ReviewConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []classify.Label{classify.Inaccuracy, classify.Mistake, classify.Blunder}
	if diff := cmp.Diff(want, rc.ExplainLabels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	if rc.MaxRetries != 2 || rc.Depth != 14 || rc.TopN != 3 {
		t.Errorf("review config = %+v", rc)
	}

	cfg.Review.MaxRetries = 0
	rc, _ = ReviewConfig(cfg)
	if rc.MaxRetries != -1 {
		t.Errorf("MaxRetries = %d, want -1 for a single attempt", rc.MaxRetries)
	}

	cfg.Review.ExplainLabels = []string{"Brilliant"}
	if _, err := ReviewConfig(cfg); err == nil {
		t.Error("unknown label accepted")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := OpenStore(ctx, config.StoreConfig{Kind: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("memory kind gave %T", s)
	}

	s, err = OpenStore(ctx, config.StoreConfig{Kind: "file", Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*store.FileStore); !ok {
		t.Errorf("file kind gave %T", s)
	}
	_ = s.Close()

	if _, err := OpenStore(ctx, config.StoreConfig{Kind: "redis"}); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	p, closeFn, err := NewProvider(ctx, config.LLMConfig{Provider: "none"}, log)
	if err != nil || p != nil {
		t.Errorf("none = %v, %v", p, err)
	}
	_ = closeFn()

	cfg := config.Default().LLM
	cfg.Provider = "openai"
	cfg.OpenAIAPIKey = "sk-test"
	p, closeFn, err = NewProvider(ctx, cfg, log)
	if err != nil || p == nil {
		t.Fatalf("openai = %v, %v", p, err)
	}
	_ = closeFn()

	if _, _, err := NewProvider(ctx, config.LLMConfig{Provider: "claude"}, log); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestNew_WithoutProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "none"
	cfg.Engine.StockfishPath = "/nonexistent/stockfish"

	a, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if a.Service == nil || a.Pool == nil || a.Store == nil {
		t.Fatalf("app = %+v", a)
	}
	if st := a.Pool.Status(); st.Size != 1 || st.Spawns != 0 {
		t.Errorf("pool status = %+v", st)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if !a.Pool.Status().Closed {
		t.Error("pool not closed")
	}
}
