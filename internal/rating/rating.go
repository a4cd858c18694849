// Package rating turns classified moves into accuracy figures and a heuristic
// rating estimate. The estimate is not calibrated against any Elo pool.
package rating

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
)

// K is the accuracy penalty per centipawn of loss. Tunable; 1.0 by default.
var K = 1.0

const (
	MinRating = 400
	MaxRating = 2500
)

// Accuracy aggregates one side's (or a whole game's) classified moves.
type Accuracy struct {
	Accuracy     float64 `json:"accuracy"`
	Moves        int     `json:"moves"`
	Blunders     int     `json:"blunders"`
	Mistakes     int     `json:"mistakes"`
	Inaccuracies int     `json:"inaccuracies"`
	AverageLoss  float64 `json:"average_loss"`
}

// MoveAccuracy is max(0, 100 - K*loss).
func MoveAccuracy(loss int) float64 {
	return math.Max(0, 100-K*float64(loss))
}

// GameAccuracy averages move accuracy. No moves yields the zero Accuracy.
func GameAccuracy(cs []classify.Classification) Accuracy {
	var a Accuracy
	if len(cs) == 0 {
		return a
	}
	var sum, loss float64
	for _, c := range cs {
		sum += MoveAccuracy(c.CentipawnLoss)
		loss += float64(c.CentipawnLoss)
		switch c.Label {
		case classify.Blunder:
			a.Blunders++
		case classify.Mistake:
			a.Mistakes++
		case classify.Inaccuracy:
			a.Inaccuracies++
		}
	}
	a.Moves = len(cs)
	a.Accuracy = sum / float64(len(cs))
	a.AverageLoss = loss / float64(len(cs))
	return a
}

// PerSide splits classifications by mover. whiteMoved reports whether White
// played a ply, which depends on the side to move in the starting position.
func PerSide(cs []classify.Classification, whiteMoved func(ply int) bool) (white, black []classify.Classification) {
	for _, c := range cs {
		if whiteMoved(c.Ply) {
			white = append(white, c)
		} else {
			black = append(black, c)
		}
	}
	return white, black
}

// Confidence grades how far an estimate can be trusted.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

func (c Confidence) downgrade() Confidence {
	switch c {
	case High:
		return Medium
	default:
		return Low
	}
}

// Pace is the speed class implied by a time control.
type Pace string

const (
	Unknown   Pace = ""
	Bullet    Pace = "bullet"
	Blitz     Pace = "blitz"
	Rapid     Pace = "rapid"
	Classical Pace = "classical"
)

var timeControlRegex = regexp.MustCompile(`^(\d+)(?:\+(\d+))?$`)

// PaceFromTimeControl reads a PGN TimeControl tag ("300+3", "180", "60+0") or a
// pace word. Estimated game time is base + 40*increment seconds: under 180 is
// bullet, under 480 blitz, under 1500 rapid, otherwise classical.
func PaceFromTimeControl(tc string) Pace {
	tc = strings.ToLower(strings.TrimSpace(tc))
	switch Pace(tc) {
	case Bullet, Blitz, Rapid, Classical:
		return Pace(tc)
	}
	// multi-period controls like "40/7200:3600" use the first period
	if i := strings.IndexByte(tc, ':'); i >= 0 {
		tc = tc[:i]
	}
	if i := strings.IndexByte(tc, '/'); i >= 0 {
		tc = tc[i+1:]
	}
	m := timeControlRegex.FindStringSubmatch(tc)
	if m == nil {
		return Unknown
	}
	base, _ := strconv.Atoi(m[1])
	inc := 0
	if m[2] != "" {
		inc, _ = strconv.Atoi(m[2])
	}
	switch est := base + 40*inc; {
	case est < 180:
		return Bullet
	case est < 480:
		return Blitz
	case est < 1500:
		return Rapid
	default:
		return Classical
	}
}

// Estimate is a heuristic playing-strength guess.
type Estimate struct {
	Rating     int        `json:"estimated_rating"`
	Confidence Confidence `json:"confidence"`
	Pace       Pace       `json:"pace,omitempty"`
}

// EstimateRating computes clamp(400 + 16*accuracy - 50*blunders, 400, 2500).
// Confidence is high with no blunders and accuracy >= 80, medium with at most two
// blunders and accuracy >= 70, low otherwise, and one step lower for bullet or
// blitz time controls.
func EstimateRating(accuracy float64, blunders int, timeControl string) Estimate {
	r := 400 + 16*accuracy - 50*float64(blunders)
	rating := int(math.Round(math.Min(MaxRating, math.Max(MinRating, r))))

	conf := Low
	switch {
	case blunders == 0 && accuracy >= 80:
		conf = High
	case blunders <= 2 && accuracy >= 70:
		conf = Medium
	}
	pace := PaceFromTimeControl(timeControl)
	if pace == Bullet || pace == Blitz {
		conf = conf.downgrade()
	}
	return Estimate{Rating: rating, Confidence: conf, Pace: pace}
}

// Phase boundaries by ply.
const (
	openingEnd    = 20
	middlegameEnd = 60
)

func phase(ply int) string {
	switch {
	case ply <= openingEnd:
		return "opening"
	case ply <= middlegameEnd:
		return "middlegame"
	default:
		return "endgame"
	}
}

// Weaknesses derives a short list of recurring problems from one side's moves.
func Weaknesses(cs []classify.Classification) []string {
	out := []string{}
	if len(cs) == 0 {
		return out
	}
	acc := GameAccuracy(cs)
	if acc.Blunders >= 2 {
		out = append(out, fmt.Sprintf("Frequent blunders: %d moves lost more than %d centipawns", acc.Blunders, classify.MistakeMax))
	}

	errs := map[string]int{}
	for _, c := range cs {
		switch c.Label {
		case classify.Inaccuracy, classify.Mistake, classify.Blunder:
			errs[phase(c.Ply)]++
		}
	}
	worst, n := "", 0
	for _, p := range []string{"opening", "middlegame", "endgame"} {
		if errs[p] > n {
			worst, n = p, errs[p]
		}
	}
	if n >= 2 {
		out = append(out, fmt.Sprintf("Most errors came in the %s (%d)", worst, n))
	}
	if acc.AverageLoss > classify.GoodMax {
		out = append(out, fmt.Sprintf("High average centipawn loss (%.0f)", acc.AverageLoss))
	}
	return out
}
