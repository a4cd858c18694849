// Package classify labels move quality from engine evaluations.
package classify

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Label is a move quality label. The set is fixed.
type Label string

const (
	Best       Label = "Best"
	Good       Label = "Good"
	Inaccuracy Label = "Inaccuracy"
	Mistake    Label = "Mistake"
	Blunder    Label = "Blunder"
)

// Labels lists every label from best to worst.
var Labels = []Label{Best, Good, Inaccuracy, Mistake, Blunder}

// ParseLabel accepts exactly one of Labels (case-insensitive).
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown move label %q", s)
}

// Thresholds on |delta| in centipawns; each bound is inclusive.
const (
	GoodMax       = 50
	InaccuracyMax = 100
	MistakeMax    = 200
)

// Classification is the quality of one ply. Delta is signed (played minus best);
// CentipawnLoss is its magnitude.
type Classification struct {
	Ply           int   `json:"ply"`
	Label         Label `json:"label"`
	CentipawnLoss int   `json:"centipawn_loss"`
	Delta         int   `json:"delta"`
}

var uciRegex = regexp.MustCompile(`^[a-hA-H][1-8][a-hA-H][1-8][qrbnQRBN]?$`)

// NormalizeMove strips annotations and canonicalizes castling and UCI case so two
// spellings of the same move compare equal.
func NormalizeMove(m string) string {
	m = strings.TrimSpace(m)
	m = strings.TrimRight(m, "+#!?")
	switch m {
	case "0-0":
		return "O-O"
	case "0-0-0":
		return "O-O-O"
	}
	if uciRegex.MatchString(m) {
		return strings.ToLower(m)
	}
	return m
}

// Classify labels played against best. Both evaluations are after the respective
// move, in centipawns from the same fixed perspective. The label depends only on
// the magnitude of the difference, so a move scoring better than the engine's
// choice is labelled by how far it deviates, not rewarded.
func Classify(ply int, played, best string, evalAfterPlayed, evalAfterBest float64) Classification {
	if NormalizeMove(played) == NormalizeMove(best) {
		return Classification{Ply: ply, Label: Best}
	}
	delta := evalAfterPlayed - evalAfterBest
	loss := math.Abs(delta)
	return Classification{
		Ply:           ply,
		Label:         labelFor(loss),
		CentipawnLoss: int(math.Round(loss)),
		Delta:         int(math.Round(delta)),
	}
}

func labelFor(loss float64) Label {
	switch {
	case loss <= GoodMax:
		return Good
	case loss <= InaccuracyMax:
		return Inaccuracy
	case loss <= MistakeMax:
		return Mistake
	default:
		return Blunder
	}
}
