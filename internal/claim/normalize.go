package claim

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
)

// ErrUnrecognized is returned when model output cannot be read as a claim at all.
var ErrUnrecognized = errors.New("unrecognized claim")

var colorKeys = map[string]board.Color{
	"white":        board.White,
	"white_pieces": board.White,
	"whitepieces":  board.White,
	"w":            board.White,
	"black":        board.Black,
	"black_pieces": board.Black,
	"blackpieces":  board.Black,
	"b":            board.Black,
}

var activeColorKeys = map[string]bool{
	"active_color": true,
	"activecolor":  true,
	"side_to_move": true,
	"sidetomove":   true,
	"turn":         true,
	"to_move":      true,
}

var typeKeys = map[string]board.PieceType{
	"king": board.King, "kings": board.King, "k": board.King,
	"queen": board.Queen, "queens": board.Queen, "q": board.Queen,
	"rook": board.Rook, "rooks": board.Rook, "r": board.Rook,
	"bishop": board.Bishop, "bishops": board.Bishop, "b": board.Bishop,
	"knight": board.Knight, "knights": board.Knight, "n": board.Knight,
	"pawn": board.Pawn, "pawns": board.Pawn, "p": board.Pawn,
}

// Normalize reads raw model output into a Claim. Key variants (plural piece names,
// single letters, capitalization, "white_pieces", "side_to_move") are mapped onto the
// canonical fields; squares are trimmed, lowercased, deduplicated and sorted.
// Unknown keys are ignored.
func Normalize(raw []byte) (Claim, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrUnrecognized, err)
	}

	c := emptyClaim()
	found := false
	for key, val := range top {
		k := canonicalKey(key)
		if activeColorKeys[k] {
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				return Claim{}, fmt.Errorf("%w: %s is not a string", ErrUnrecognized, key)
			}
			c.ActiveColor = NormalizeColor(s)
			continue
		}
		color, ok := colorKeys[k]
		if !ok {
			continue
		}
		var pieces map[string]json.RawMessage
		if err := json.Unmarshal(val, &pieces); err != nil {
			return Claim{}, fmt.Errorf("%w: %s is not an object", ErrUnrecognized, key)
		}
		found = true
		side := c.side(color)
		for pk, pv := range pieces {
			t, ok := typeKeys[canonicalKey(pk)]
			if !ok {
				continue
			}
			squares, err := decodeSquares(pv)
			if err != nil {
				return Claim{}, fmt.Errorf("%w: %s.%s: %v", ErrUnrecognized, key, pk, err)
			}
			s := side.slot(t)
			*s = mergeSquares(*s, squares)
		}
	}
	if !found {
		return Claim{}, fmt.Errorf("%w: no piece lists", ErrUnrecognized)
	}
	return c, nil
}

// NormalizeColor maps "w", "White", "WHITE" and friends onto "white"/"black".
// Anything else is returned lowercased so a validator can report it.
func NormalizeColor(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "w", "white":
		return "white"
	case "b", "black":
		return "black"
	default:
		return v
	}
}

func canonicalKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.ReplaceAll(k, "-", "_")
}

// decodeSquares accepts either ["e4","d5"] or a single "e4".
func decodeSquares(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if one == "" {
			return nil, nil
		}
		return []string{one}, nil
	}
	if string(raw) == "null" {
		return nil, nil
	}
	return nil, fmt.Errorf("expected list of squares, got %s", string(raw))
}

func mergeSquares(dst, add []string) []string {
	set := make(map[string]bool, len(dst)+len(add))
	for _, s := range dst {
		set[s] = true
	}
	for _, s := range add {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func emptyClaim() Claim {
	var c Claim
	for _, color := range []board.Color{board.White, board.Black} {
		side := c.side(color)
		for _, t := range board.PieceTypes {
			*side.slot(t) = []string{}
		}
	}
	return c
}
