// Package store persists per-game review records: raw engine analysis per ply,
// move reviews (classification plus explanation) and a game summary.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/rating"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned for game ids that cannot be used as keys.
var ErrInvalidID = errors.New("invalid game id")

// MoveAnalysis is the raw engine output for one ply. Scores are from White's
// perspective.
type MoveAnalysis struct {
	GameID          string      `json:"game_id"`
	Ply             int         `json:"ply"`
	FEN             string      `json:"fen"`
	Played          string      `json:"played"`
	PlayedSAN       string      `json:"played_san"`
	Best            string      `json:"best"`
	BestSAN         string      `json:"best_san"`
	EvalBefore      eval.Score  `json:"eval_before"`
	EvalAfterPlayed eval.Score  `json:"eval_after_played"`
	EvalAfterBest   eval.Score  `json:"eval_after_best"`
	TopMoves        []eval.Line `json:"top_moves"`
	Depth           int         `json:"depth"`
	CreatedAt       time.Time   `json:"created_at"`
}

// MoveReview is the classification of one ply plus its explanation, if any.
type MoveReview struct {
	GameID            string         `json:"game_id"`
	Ply               int            `json:"ply"`
	Color             string         `json:"color"`
	SAN               string         `json:"san"`
	Label             classify.Label `json:"label"`
	CentipawnLoss     int            `json:"centipawn_loss"`
	Delta             int            `json:"delta"`
	Accuracy          float64        `json:"accuracy"`
	Explanation       string         `json:"explanation,omitempty"`
	ExplanationStatus string         `json:"explanation_status,omitempty"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// HasExplanation reports whether an explanation is attached.
func (r MoveReview) HasExplanation() bool { return r.Explanation != "" }

// SideSummary is the per-color part of a GameSummary.
type SideSummary struct {
	Player     string          `json:"player,omitempty"`
	Accuracy   rating.Accuracy `json:"accuracy"`
	Estimate   rating.Estimate `json:"estimate"`
	Weaknesses []string        `json:"weaknesses"`
}

// GameSummary aggregates a reviewed game.
type GameSummary struct {
	GameID      string      `json:"game_id"`
	Result      string      `json:"result,omitempty"`
	TimeControl string      `json:"time_control,omitempty"`
	ECO         string      `json:"eco,omitempty"`
	Opening     string      `json:"opening,omitempty"`
	TotalPlies  int         `json:"total_plies"`
	White       SideSummary `json:"white"`
	Black       SideSummary `json:"black"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Store is a keyed read/write store for review records. A classification must
// exist before an explanation can be attached to it.
type Store interface {
	PutAnalysis(ctx context.Context, a MoveAnalysis) error
	Analyses(ctx context.Context, gameID string) ([]MoveAnalysis, error)

	// PutReview saves a classification. An explanation already stored for the
	// ply survives only if the label and loss are unchanged.
	PutReview(ctx context.Context, r MoveReview) error
	AttachExplanation(ctx context.Context, gameID string, ply int, text, status string) error
	Review(ctx context.Context, gameID string, ply int) (MoveReview, error)
	Reviews(ctx context.Context, gameID string) ([]MoveReview, error)

	PutSummary(ctx context.Context, s GameSummary) error
	Summary(ctx context.Context, gameID string) (GameSummary, error)

	// GameIDs lists games with at least one record, sorted.
	GameIDs(ctx context.Context) ([]string, error)
	Close() error
}

// CheckID rejects empty ids and ids that could escape a directory.
func CheckID(id string) error {
	if id == "" || len(id) > 128 || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// keepExplanation reports whether an existing explanation still applies to a
// new classification of the same ply.
func keepExplanation(old, next MoveReview) bool {
	return old.Label == next.Label && old.CentipawnLoss == next.CentipawnLoss
}
