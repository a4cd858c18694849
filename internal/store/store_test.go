package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/rating"
)

var ignoreTimes = cmpopts.IgnoreFields(MoveReview{}, "UpdatedAt")

func analysis(game string, ply int) MoveAnalysis {
	return MoveAnalysis{
		GameID:          game,
		Ply:             ply,
		FEN:             "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Played:          "e2e4",
		PlayedSAN:       "e4",
		Best:            "d2d4",
		BestSAN:         "d4",
		EvalBefore:      eval.Centipawns(20),
		EvalAfterPlayed: eval.Centipawns(30),
		EvalAfterBest:   eval.Centipawns(35),
		TopMoves: []eval.Line{
			{Rank: 1, Move: "d2d4", Score: eval.Centipawns(35), PV: []string{"d2d4"}},
		},
		Depth:     12,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func review(game string, ply int, label classify.Label, loss int) MoveReview {
	return MoveReview{GameID: game, Ply: ply, Color: "white", SAN: "e4", Label: label, CentipawnLoss: loss, Delta: -loss, Accuracy: 100 - float64(loss)}
}

// exerciseStore runs the same contract checks against every implementation.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("analyses sorted by ply", func(t *testing.T) {
		for _, ply := range []int{3, 1, 2} {
			if err := s.PutAnalysis(ctx, analysis("g1", ply)); err != nil {
				t.Fatalf("PutAnalysis(%d): %v", ply, err)
			}
		}
		got, err := s.Analyses(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		want := []MoveAnalysis{analysis("g1", 1), analysis("g1", 2), analysis("g1", 3)}
		if diff := cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
			t.Errorf("Analyses mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing records", func(t *testing.T) {
		if _, err := s.Analyses(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Analyses err = %v, want ErrNotFound", err)
		}
		if _, err := s.Review(ctx, "g1", 99); !errors.Is(err, ErrNotFound) {
			t.Errorf("Review err = %v, want ErrNotFound", err)
		}
		if _, err := s.Summary(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Summary err = %v, want ErrNotFound", err)
		}
	})

	t.Run("explanation requires classification", func(t *testing.T) {
		err := s.AttachExplanation(ctx, "g2", 5, "text", "verified")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("AttachExplanation err = %v, want ErrNotFound", err)
		}
		if err := s.PutReview(ctx, review("g2", 5, classify.Mistake, 150)); err != nil {
			t.Fatal(err)
		}
		if err := s.AttachExplanation(ctx, "g2", 5, "Drops the bishop.", "verified"); err != nil {
			t.Fatal(err)
		}
		got, err := s.Review(ctx, "g2", 5)
		if err != nil {
			t.Fatal(err)
		}
		want := review("g2", 5, classify.Mistake, 150)
		want.Explanation = "Drops the bishop."
		want.ExplanationStatus = "verified"
		if diff := cmp.Diff(want, got, ignoreTimes); diff != "" {
			t.Errorf("Review mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("reclassification", func(t *testing.T) {
		if err := s.PutReview(ctx, review("g2", 5, classify.Mistake, 150)); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Review(ctx, "g2", 5)
		if got.Explanation != "Drops the bishop." {
			t.Errorf("same classification lost explanation: %+v", got)
		}
		if err := s.PutReview(ctx, review("g2", 5, classify.Blunder, 420)); err != nil {
			t.Fatal(err)
		}
		got, _ = s.Review(ctx, "g2", 5)
		if got.HasExplanation() || got.ExplanationStatus != "" {
			t.Errorf("changed classification kept stale explanation: %+v", got)
		}
		reviews, err := s.Reviews(ctx, "g2")
		if err != nil || len(reviews) != 1 || reviews[0].Label != classify.Blunder {
			t.Errorf("Reviews = %+v, %v", reviews, err)
		}
	})

	t.Run("summary", func(t *testing.T) {
		sum := GameSummary{
			GameID:     "g1",
			Result:     "1-0",
			TotalPlies: 3,
			White: SideSummary{
				Accuracy:   rating.Accuracy{Accuracy: 91.5, Moves: 2},
				Estimate:   rating.EstimateRating(91.5, 0, ""),
				Weaknesses: []string{},
			},
			Black:     SideSummary{Weaknesses: []string{"frequent blunders"}},
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		if err := s.PutSummary(ctx, sum); err != nil {
			t.Fatal(err)
		}
		got, err := s.Summary(ctx, "g1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(sum, got, cmpopts.EquateApproxTime(time.Second)); diff != "" {
			t.Errorf("Summary mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("game ids", func(t *testing.T) {
		ids, err := s.GameIDs(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"g1", "g2"}, ids); diff != "" {
			t.Errorf("GameIDs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if err := s.PutAnalysis(ctx, analysis("../evil", 1)); !errors.Is(err, ErrInvalidID) {
			t.Errorf("err = %v, want ErrInvalidID", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)

	if _, err := os.Stat(filepath.Join(dir, "g1"+fileExt)); err != nil {
		t.Errorf("expected game file: %v", err)
	}

	// A second store over the same directory sees the same records.
	s2, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	got, err := s2.Review(context.Background(), "g2", 5)
	if err != nil || got.Label != classify.Blunder {
		t.Errorf("reopened Review = %+v, %v", got, err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := os.WriteFile(filepath.Join(dir, "bad"+fileExt), []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reviews(context.Background(), "bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt file err = %v, want decode error", err)
	}
}

func TestPGStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	for _, table := range []string{"move_analyses", "move_reviews", "game_summaries"} {
		if _, err := s.DB.ExecContext(ctx, "truncate "+table); err != nil {
			t.Fatal(err)
		}
	}
	exerciseStore(t, s)
}

func TestCheckID(t *testing.T) {
	tests := []struct {
		id string
		ok bool
	}{
		{"3f2a0c1e-5b7d-4a8e-9c6f-1d2e3f4a5b6c", true},
		{"game-42", true},
		{"", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"tab\there", false},
	}
	for _, tt := range tests {
		err := CheckID(tt.id)
		if (err == nil) != tt.ok {
			t.Errorf("CheckID(%q) = %v, want ok=%v", tt.id, err, tt.ok)
		}
	}
}
