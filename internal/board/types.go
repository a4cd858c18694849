package board

import "fmt"

// Color is the side owning a piece or the side to move.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Other returns the opposing color.
func (c Color) Other() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

// PieceType is a piece category, independent of color.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// PieceTypes lists the categories in the order used for claims and prompts.
var PieceTypes = []PieceType{King, Queen, Rook, Bishop, Knight, Pawn}

func (t PieceType) String() string {
	switch t {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return ""
	}
}

// letter returns the lowercase FEN letter for the type.
func (t PieceType) letter() byte {
	switch t {
	case King:
		return 'k'
	case Queen:
		return 'q'
	case Rook:
		return 'r'
	case Bishop:
		return 'b'
	case Knight:
		return 'n'
	case Pawn:
		return 'p'
	default:
		return 0
	}
}

// Piece is a colored piece. The zero value is an empty square.
type Piece struct {
	Color Color
	Type  PieceType
}

// IsEmpty reports whether the piece denotes an empty square.
func (p Piece) IsEmpty() bool { return p.Type == NoPieceType }

// FENByte returns the FEN letter (uppercase for White), or '.' when empty.
func (p Piece) FENByte() byte {
	l := p.Type.letter()
	if l == 0 {
		return '.'
	}
	if p.Color == White {
		return l - 'a' + 'A'
	}
	return l
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return p.Color.String() + " " + p.Type.String()
}

// Square indexes the board A1=0, B1=1, ..., H8=63.
type Square int8

// NoSquare marks an absent square (e.g. no en passant target).
const NoSquare Square = -1

// NewSquare builds a square from zero-based file and rank.
func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

// File returns the zero-based file (0 = a).
func (s Square) File() int { return int(s) % 8 }

// Rank returns the zero-based rank (0 = rank 1).
func (s Square) Rank() int { return int(s) / 8 }

// Valid reports whether s is on the board.
func (s Square) Valid() bool { return s >= 0 && s <= 63 }

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(name string) (Square, error) {
	if len(name) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	file := int(name[0] - 'a')
	rank := int(name[1] - '1')
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return NewSquare(file, rank), nil
}
