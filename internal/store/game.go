package store

import (
	"sort"
	"time"
)

// gameDoc holds every record of one game. MemoryStore keeps these in a map and
// FileStore serializes one per file.
type gameDoc struct {
	GameID   string               `json:"game_id"`
	Analyses map[int]MoveAnalysis `json:"analyses"`
	Reviews  map[int]MoveReview   `json:"reviews"`
	Summary  *GameSummary         `json:"summary,omitempty"`
}

func newGameDoc(id string) *gameDoc {
	return &gameDoc{
		GameID:   id,
		Analyses: make(map[int]MoveAnalysis),
		Reviews:  make(map[int]MoveReview),
	}
}

func (d *gameDoc) putAnalysis(a MoveAnalysis, now time.Time) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	d.Analyses[a.Ply] = a
}

func (d *gameDoc) putReview(r MoveReview, now time.Time) {
	if old, ok := d.Reviews[r.Ply]; ok && r.Explanation == "" && keepExplanation(old, r) {
		r.Explanation = old.Explanation
		r.ExplanationStatus = old.ExplanationStatus
	}
	r.UpdatedAt = now
	d.Reviews[r.Ply] = r
}

func (d *gameDoc) attach(ply int, text, status string, now time.Time) error {
	r, ok := d.Reviews[ply]
	if !ok {
		return ErrNotFound
	}
	r.Explanation = text
	r.ExplanationStatus = status
	r.UpdatedAt = now
	d.Reviews[ply] = r
	return nil
}

func (d *gameDoc) analyses() []MoveAnalysis {
	out := make([]MoveAnalysis, 0, len(d.Analyses))
	for _, a := range d.Analyses {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ply < out[j].Ply })
	return out
}

func (d *gameDoc) reviews() []MoveReview {
	out := make([]MoveReview, 0, len(d.Reviews))
	for _, r := range d.Reviews {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ply < out[j].Ply })
	return out
}

func (d *gameDoc) empty() bool {
	return len(d.Analyses) == 0 && len(d.Reviews) == 0 && d.Summary == nil
}
