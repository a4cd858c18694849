// Package verify checks model output against board ground truth and drives the bounded
// retry loops for position extraction and move explanations.
package verify

import (
	"fmt"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
)

const (
	// ValidThreshold is the confidence a claim needs to count as valid.
	ValidThreshold = 0.9
	// RevisionThreshold is the confidence below which a claim must be revised.
	// Claims in [RevisionThreshold, ValidThreshold) are invalid but not flagged for revision.
	RevisionThreshold = 0.8
)

// Verdict is the outcome of checking a claim. For position claims the confidence is
// computed from the discrepancy count; for explanation audits it is the model's own
// number and only advisory.
type Verdict struct {
	IsValid       bool        `json:"is_valid"`
	Discrepancies []string    `json:"discrepancies"`
	Confidence    float64     `json:"confidence_score"`
	NeedsRevision bool        `json:"needs_revision"`
	Corrected     claim.Claim `json:"corrected_claim"`
}

// Confidence is 1.0 with no discrepancies, minus 0.1 per discrepancy, floored at 0.
func Confidence(discrepancies int) float64 {
	if discrepancies >= 10 {
		return 0
	}
	return float64(10-discrepancies) / 10
}

// Validate compares an untrusted claim with the position it should describe.
// Discrepancies are ordered white before black, king through pawn, missing before
// hallucinated, squares by name, with an active color mismatch last.
func Validate(c claim.Claim, truth board.Position) Verdict {
	gt := claim.FromPosition(truth)
	discrepancies := make([]string, 0)

	for _, color := range []board.Color{board.White, board.Black} {
		for _, t := range board.PieceTypes {
			real := gt.Squares(color, t)
			claimed := c.Squares(color, t)
			for _, sq := range difference(real, claimed) {
				discrepancies = append(discrepancies, fmt.Sprintf("LLM missed %s %s on %s", color, t, sq))
			}
			for _, sq := range difference(claimed, real) {
				discrepancies = append(discrepancies, fmt.Sprintf("LLM hallucinated %s %s on %s", color, t, sq))
			}
		}
	}
	if got := claim.NormalizeColor(c.ActiveColor); got != gt.ActiveColor {
		discrepancies = append(discrepancies, fmt.Sprintf("active color is %s, LLM claimed %q", gt.ActiveColor, c.ActiveColor))
	}

	conf := Confidence(len(discrepancies))
	valid := len(discrepancies) == 0 && conf >= ValidThreshold
	return Verdict{
		IsValid:       valid,
		Discrepancies: discrepancies,
		Confidence:    conf,
		NeedsRevision: !valid || conf < RevisionThreshold,
		Corrected:     gt,
	}
}

// difference returns the elements of a not in b, keeping a's order.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if !in[s] {
			out = append(out, s)
		}
	}
	return out
}
