package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, r := range []store.MoveReview{
		{GameID: "g1", Ply: 2, Color: "black", SAN: "e5", Label: classify.Best, Accuracy: 100},
		{GameID: "g1", Ply: 1, Color: "white", SAN: "e4", Label: classify.Good, CentipawnLoss: 12, Delta: -12, Accuracy: 98.8},
	} {
		if err := s.PutReview(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.AttachExplanation(ctx, "g1", 1, "Takes the centre, with a comma.", "verified"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	games, rows, err := export(ctx, s, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if games != 1 || rows != 2 {
		t.Errorf("export = %d games, %d rows", games, rows)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		header,
		{"g1", "1", "white", "e4", "Good", "12", "-12", "98.8", "verified", "Takes the centre, with a comma."},
		{"g1", "2", "black", "e5", "Best", "0", "0", "100.0", "", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}
