package board

import (
	"fmt"
	"strings"
)

// Move is a single ply. From/To/Promotion form the engine-oriented (UCI) identity;
// SAN is filled in when the move was resolved against its source position.
type Move struct {
	From      Square
	To        Square
	Promotion PieceType
	SAN       string
}

// promotion letters, indexed the same way as the UCI suffix
var promoLetters = map[PieceType]byte{
	Queen:  'q',
	Rook:   'r',
	Bishop: 'b',
	Knight: 'n',
}

// UCI converts a Move to UCI notation (e.g., "e2e4", "e7e8q").
func (m Move) UCI() string {
	if !m.From.Valid() || !m.To.Valid() {
		return ""
	}
	uci := m.From.String() + m.To.String()
	if l, ok := promoLetters[m.Promotion]; ok {
		uci += string(l)
	}
	return uci
}

func (m Move) String() string {
	if m.SAN != "" {
		return m.SAN
	}
	return m.UCI()
}

// MoveFromUCI parses a UCI move string into a Move without SAN.
// Examples: "e2e4", "e7e8q", "a1h8"
func MoveFromUCI(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return Move{}, fmt.Errorf("UCI move has bad length: %q", uci)
	}

	from, err := ParseSquare(uci[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid from square in UCI %q", uci)
	}
	to, err := ParseSquare(uci[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid to square in UCI %q", uci)
	}

	m := Move{From: from, To: to}
	if len(uci) == 5 {
		switch uci[4] {
		case 'q', 'Q':
			m.Promotion = Queen
		case 'r', 'R':
			m.Promotion = Rook
		case 'b', 'B':
			m.Promotion = Bishop
		case 'n', 'N':
			m.Promotion = Knight
		default:
			return Move{}, fmt.Errorf("invalid promotion piece: %c", uci[4])
		}
	}
	return m, nil
}

// trimAnnotations strips check, mate and quality suffixes from a SAN token.
func trimAnnotations(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "+#!?")
	// castling written with zeros
	switch s {
	case "0-0":
		return "O-O"
	case "0-0-0":
		return "O-O-O"
	}
	return s
}
