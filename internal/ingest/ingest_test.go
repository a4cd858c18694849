package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/review"
)

const twoGames = `[Event "one"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0

[Event "two"]
[Result "*"]

1. d4 d5 *
`

type fakeReviewer struct {
	mu   sync.Mutex
	ids  []string
	fail map[string]bool
}

func (f *fakeReviewer) ReviewPGN(_ context.Context, id, text string) (review.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	if f.fail[id] {
		return review.Report{}, errors.New("boom")
	}
	return review.Report{GameID: id}, nil
}

func TestSplitGames(t *testing.T) {
	games, err := SplitGames(strings.NewReader(twoGames))
	if err != nil {
		t.Fatal(err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if !strings.Contains(games[0], "Qxf7#") || strings.Contains(games[0], "d4") {
		t.Errorf("first game = %q", games[0])
	}
	if !strings.HasPrefix(games[1], `[Event "two"]`) {
		t.Errorf("second game = %q", games[1])
	}

	games, _ = SplitGames(strings.NewReader("[Event \"empty\"]\n\n"))
	if len(games) != 0 {
		t.Errorf("tag-only input gave %d games", len(games))
	}
}

func TestGameIDPrefix(t *testing.T) {
	tests := map[string]string{
		"club.pgn":             "club",
		"2024 open/r1.pgn.zst": "r1",
		"a b+c.pgn":            "a_b_c",
		".pgn":                 "game",
	}
	for in, want := range tests {
		if got := GameIDPrefix(in); got != want {
			t.Errorf("GameIDPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessNewFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "club.pgn"), []byte(twoGames), 0o644); err != nil {
		t.Fatal(err)
	}
	enc, _ := zstd.NewWriter(nil)
	compressed := enc.EncodeAll([]byte(twoGames), nil)
	_ = enc.Close()
	if err := os.WriteFile(filepath.Join(dir, "old.pgn.zst"), compressed, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rv := &fakeReviewer{fail: map[string]bool{"old-2": true}}
	w, err := NewWorker(Config{WatchDir: dir, Workers: 2, Logger: zerolog.Nop()}, rv)
	if err != nil {
		t.Fatal(err)
	}
	results, err := w.ProcessNewFiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []FileResult{
		{Name: "club.pgn", Games: 2, Reviewed: 2},
		{Name: "old.pgn.zst", Games: 2, Reviewed: 1, Failed: 1},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if len(rv.ids) != 4 {
		t.Errorf("reviewed ids = %v", rv.ids)
	}

	for _, name := range []string{"club.pgn", "old.pgn.zst"} {
		if _, err := os.Stat(filepath.Join(dir, "processed", name)); err != nil {
			t.Errorf("%s not moved: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("non-PGN file touched: %v", err)
	}

	results, err = w.ProcessNewFiles(context.Background())
	if err != nil || len(results) != 0 {
		t.Errorf("second poll = %v, %v", results, err)
	}
}

func TestNewWorker_Disabled(t *testing.T) {
	w, err := NewWorker(Config{}, &fakeReviewer{})
	if w != nil || err != nil {
		t.Errorf("NewWorker(empty) = %v, %v", w, err)
	}
}
