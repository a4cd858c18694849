package board

import (
	"fmt"
	"regexp"
	"strings"
)

// InvalidPlyError is returned when a ply index is outside 1..TotalPlies.
type InvalidPlyError struct {
	Ply   int
	Total int
}

func (e *InvalidPlyError) Error() string {
	return fmt.Sprintf("invalid ply %d: game has %d plies", e.Ply, e.Total)
}

// MalformedGameError is returned at load time when any move in the list is illegal
// or unparseable. Ply is 0 when the decoder could not attribute the failure.
type MalformedGameError struct {
	Ply  int
	Move string
	Err  error
}

func (e *MalformedGameError) Error() string {
	if e.Ply > 0 {
		return fmt.Sprintf("malformed game at ply %d (%q): %v", e.Ply, e.Move, e.Err)
	}
	return fmt.Sprintf("malformed game: %v", e.Err)
}

func (e *MalformedGameError) Unwrap() error { return e.Err }

// Game is a fully replayed move list. positions[i] is the position before ply i+1.
type Game struct {
	moves     []Move
	positions []Position
	tags      map[string]string
}

// LoadPGN decodes PGN text and replays the whole game once. Every movetext token
// must become a move; the first one that does not fails the load with its ply.
func LoadPGN(text string) (*Game, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &MalformedGameError{Err: fmt.Errorf("empty PGN")}
	}
	tags, body, err := splitPGN(text)
	if err != nil {
		return nil, &MalformedGameError{Err: err}
	}
	tokens := SplitMovetext(body)
	if len(tokens) == 0 {
		return nil, &MalformedGameError{Err: fmt.Errorf("no moves")}
	}

	g, err := LoadMoves(tags["FEN"], tokens)
	if err != nil {
		return nil, err
	}
	for k, v := range tags {
		g.tags[k] = v
	}
	return g, nil
}

var tagRegex = regexp.MustCompile(`^\[(\w+)\s+"((?:[^"\\]|\\.)*)"\s*\]$`)

// splitPGN separates tag pairs from movetext and strips comments, escape lines
// and variations from the movetext.
func splitPGN(text string) (map[string]string, string, error) {
	tags := make(map[string]string)
	var body strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "%"), line == "" && body.Len() == 0:
			continue
		case strings.HasPrefix(line, "[") && body.Len() == 0:
			m := tagRegex.FindStringSubmatch(line)
			if m == nil {
				return nil, "", fmt.Errorf("bad tag line %q", line)
			}
			tags[m[1]] = strings.ReplaceAll(strings.ReplaceAll(m[2], `\"`, `"`), `\\`, `\`)
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	var out strings.Builder
	depth := 0
	inBrace, inLine := false, false
	for _, r := range body.String() {
		switch {
		case inLine:
			if r == '\n' {
				inLine = false
				out.WriteRune(' ')
			}
		case inBrace:
			if r == '}' {
				inBrace = false
				out.WriteRune(' ')
			}
		case r == '{':
			inBrace = true
		case r == ';':
			inLine = true
		case r == '(':
			depth++
		case r == ')':
			if depth == 0 {
				return nil, "", fmt.Errorf("unbalanced ')' in movetext")
			}
			depth--
			out.WriteRune(' ')
		case depth > 0:
		default:
			out.WriteRune(r)
		}
	}
	if inBrace || depth > 0 {
		return nil, "", fmt.Errorf("unterminated comment or variation")
	}
	return tags, out.String(), nil
}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+`)

// SplitMovetext turns "1. e4 e5 2. Nf3" into ["e4", "e5", "Nf3"], dropping results.
func SplitMovetext(movetext string) []string {
	cleaned := moveNumberRegex.ReplaceAllString(movetext, " ")
	var out []string
	for _, tok := range strings.Fields(cleaned) {
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if tok[0] == '$' {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// LoadMoves replays SAN or UCI tokens from startFEN (empty means the initial position).
func LoadMoves(startFEN string, tokens []string) (*Game, error) {
	start := StartPosition()
	if strings.TrimSpace(startFEN) != "" {
		var err error
		if start, err = ParseFEN(startFEN); err != nil {
			return nil, &MalformedGameError{Err: err}
		}
	}

	g := &Game{
		moves:     make([]Move, 0, len(tokens)),
		positions: make([]Position, 0, len(tokens)+1),
		tags:      make(map[string]string),
	}
	g.positions = append(g.positions, start)
	if strings.TrimSpace(startFEN) != "" {
		g.tags["FEN"] = startFEN
	}

	cur := start
	for i, tok := range tokens {
		m, err := cur.ParseMove(tok)
		if err != nil {
			return nil, &MalformedGameError{Ply: i + 1, Move: tok, Err: err}
		}
		next, err := cur.Apply(m)
		if err != nil {
			return nil, &MalformedGameError{Ply: i + 1, Move: tok, Err: err}
		}
		g.moves = append(g.moves, m)
		g.positions = append(g.positions, next)
		cur = next
	}
	return g, nil
}

// TotalPlies returns the number of half-moves in the game.
func (g *Game) TotalPlies() int { return len(g.moves) }

func (g *Game) checkPly(ply int) error {
	if ply < 1 || ply > len(g.moves) {
		return &InvalidPlyError{Ply: ply, Total: len(g.moves)}
	}
	return nil
}

// PositionBefore returns the position in which ply (1-indexed) was played.
func (g *Game) PositionBefore(ply int) (Position, error) {
	if err := g.checkPly(ply); err != nil {
		return Position{}, err
	}
	return g.positions[ply-1], nil
}

// PositionAfter returns the position once ply has been played.
func (g *Game) PositionAfter(ply int) (Position, error) {
	if err := g.checkPly(ply); err != nil {
		return Position{}, err
	}
	return g.positions[ply], nil
}

// MoveAt returns the move played at ply.
func (g *Game) MoveAt(ply int) (Move, error) {
	if err := g.checkPly(ply); err != nil {
		return Move{}, err
	}
	return g.moves[ply-1], nil
}

// Start returns the position before the first move.
func (g *Game) Start() Position { return g.positions[0] }

// SANs returns the SAN of every move in order.
func (g *Game) SANs() []string {
	out := make([]string, len(g.moves))
	for i, m := range g.moves {
		out[i] = m.SAN
	}
	return out
}

// Tag returns a PGN tag value, or "" if absent.
func (g *Game) Tag(key string) string { return g.tags[key] }

// Mover returns the color that played ply.
func (g *Game) Mover(ply int) Color {
	if err := g.checkPly(ply); err != nil {
		return NoColor
	}
	return g.positions[ply-1].Turn()
}
