package eval

import "fmt"

// MateScore is the centipawn sentinel for a forced mate. It never stands for a
// real material evaluation; Score.Mate carries the distance.
const MateScore = 10000

// Score is an evaluation from White's perspective: positive favours White.
type Score struct {
	Centipawns int `json:"cp"`
	// Mate is the signed distance to mate in moves (positive: White mates).
	// Zero for ordinary scores and for positions that are already checkmate.
	Mate int `json:"mate,omitempty"`
}

// Centipawns builds an ordinary score.
func Centipawns(cp int) Score { return Score{Centipawns: cp} }

// MateIn builds a mate score; n > 0 means White mates in n.
func MateIn(n int) Score {
	s := Score{Centipawns: MateScore, Mate: n}
	if n < 0 {
		s.Centipawns = -MateScore
	}
	return s
}

// Checkmated is the score of a position where winner has already mated.
func Checkmated(whiteWon bool) Score {
	if whiteWon {
		return Score{Centipawns: MateScore}
	}
	return Score{Centipawns: -MateScore}
}

// IsMate reports whether the score is a mate sentinel.
func (s Score) IsMate() bool {
	return s.Centipawns == MateScore || s.Centipawns == -MateScore
}

// Display renders "+0.35", "-1.20", "0.00", "#3", "#-2", or "1-0"/"0-1" for a
// position that is already mate.
func (s Score) Display() string {
	if s.IsMate() {
		switch {
		case s.Mate != 0:
			return fmt.Sprintf("#%d", s.Mate)
		case s.Centipawns > 0:
			return "1-0"
		default:
			return "0-1"
		}
	}
	if s.Centipawns == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%+.2f", float64(s.Centipawns)/100)
}

func (s Score) String() string { return s.Display() }
