package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is returned when a position encoding cannot be parsed.
var ErrInvalidFEN = errors.New("invalid FEN")

// Position is an immutable, comparable board state.
type Position struct {
	squares   [64]Piece
	turn      Color
	castling  string
	enPassant Square
	halfmove  int
	fullmove  int
}

// Status describes whether the side to move can still play.
type Status uint8

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
)

func (s Status) String() string {
	switch s {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	default:
		return "ongoing"
	}
}

// StartPosition returns the standard initial position.
func StartPosition() Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFEN parses and validates a FEN string.
func ParseFEN(fen string) (Position, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return Position{}, fmt.Errorf("%w %q: %v", ErrInvalidFEN, fen, err)
	}
	p, err := fromChess(chess.NewGame(opt).Position())
	if err != nil {
		return Position{}, err
	}
	if err := p.checkMaterial(); err != nil {
		return Position{}, fmt.Errorf("%w %q: %v", ErrInvalidFEN, fen, err)
	}
	return p, nil
}

// checkMaterial rejects piece placements no legal game can reach.
func (p Position) checkMaterial() error {
	var counts [2][Pawn + 1]int
	total := [2]int{}
	for sq, pc := range p.squares {
		if pc.IsEmpty() {
			continue
		}
		if pc.Type == Pawn {
			if r := Square(sq).Rank(); r == 0 || r == 7 {
				return fmt.Errorf("pawn on %s", Square(sq))
			}
		}
		side := 0
		if pc.Color == Black {
			side = 1
		}
		counts[side][pc.Type]++
		total[side]++
	}
	for side, color := range []Color{White, Black} {
		c := counts[side]
		switch {
		case c[King] != 1:
			return fmt.Errorf("%s has %d kings", color, c[King])
		case total[side] > 16:
			return fmt.Errorf("%s has %d pieces", color, total[side])
		case c[Pawn] > 8:
			return fmt.Errorf("%s has %d pawns", color, c[Pawn])
		case c[Queen] > 1+8-c[Pawn]:
			return fmt.Errorf("%s has %d queens with %d pawns", color, c[Queen], c[Pawn])
		}
	}
	return nil
}

// fromChess converts a library position into a Position value.
func fromChess(cp *chess.Position) (Position, error) {
	fields := strings.Fields(cp.String())
	if len(fields) != 6 {
		return Position{}, fmt.Errorf("%w: unexpected field count in %q", ErrInvalidFEN, cp.String())
	}

	var p Position
	for sq, pc := range cp.Board().SquareMap() {
		idx := NewSquare(int(sq.File()), int(sq.Rank()))
		if !idx.Valid() {
			continue
		}
		p.squares[idx] = Piece{Color: colorFromChess(pc.Color()), Type: typeFromChess(pc.Type())}
	}
	p.turn = colorFromChess(cp.Turn())
	p.castling = fields[2]
	p.enPassant = NoSquare
	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return Position{}, fmt.Errorf("%w: en passant %q", ErrInvalidFEN, fields[3])
		}
		p.enPassant = sq
	}
	var err error
	if p.halfmove, err = strconv.Atoi(fields[4]); err != nil {
		return Position{}, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
	}
	if p.fullmove, err = strconv.Atoi(fields[5]); err != nil {
		return Position{}, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
	}
	return p, nil
}

// chessPosition rebuilds the library position used for legality checks.
func (p Position) chessPosition() (*chess.Position, error) {
	opt, err := chess.FEN(p.FEN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// FEN renders the position in Forsyth-Edwards notation.
func (p Position) FEN() string {
	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.squares[NewSquare(file, rank)]
			if pc.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			b.WriteByte(pc.FENByte())
		}
		if empty > 0 {
			b.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			b.WriteByte('/')
		}
	}

	turn := "w"
	if p.turn == Black {
		turn = "b"
	}
	castling := p.castling
	if castling == "" {
		castling = "-"
	}
	return fmt.Sprintf("%s %s %s %s %d %d", b.String(), turn, castling, p.enPassant.String(), p.halfmove, p.fullmove)
}

func (p Position) String() string { return p.FEN() }

// PieceAt returns the piece on sq (zero Piece when empty).
func (p Position) PieceAt(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.squares[sq]
}

// Turn returns the side to move.
func (p Position) Turn() Color { return p.turn }

// Castling returns the castling rights field ("-" when none).
func (p Position) Castling() string { return p.castling }

// EnPassant returns the en passant target square or NoSquare.
func (p Position) EnPassant() Square { return p.enPassant }

// FullMove returns the fullmove number.
func (p Position) FullMove() int { return p.fullmove }

// Occupied calls fn for every occupied square from a1 to h8.
func (p Position) Occupied(fn func(sq Square, pc Piece)) {
	for i, pc := range p.squares {
		if !pc.IsEmpty() {
			fn(Square(i), pc)
		}
	}
}

// Grid renders a rank/file labelled text diagram, White at the bottom.
func (p Position) Grid() string {
	var b strings.Builder
	b.WriteString("  +-----------------+\n")
	for rank := 7; rank >= 0; rank-- {
		b.WriteByte(byte('1' + rank))
		b.WriteString(" |")
		for file := 0; file < 8; file++ {
			b.WriteByte(' ')
			b.WriteByte(p.squares[NewSquare(file, rank)].FENByte())
		}
		b.WriteString(" |\n")
	}
	b.WriteString("  +-----------------+\n")
	b.WriteString("    a b c d e f g h\n")
	return b.String()
}

// LegalMoves returns every legal move with SAN filled in.
func (p Position) LegalMoves() ([]Move, error) {
	cp, err := p.chessPosition()
	if err != nil {
		return nil, err
	}
	valid := cp.ValidMoves()
	moves := make([]Move, 0, len(valid))
	for _, cm := range valid {
		moves = append(moves, moveFromChess(cp, cm))
	}
	return moves, nil
}

// ParseMove resolves a SAN or UCI token against the position. The returned move is
// always legal and carries both notations.
func (p Position) ParseMove(notation string) (Move, error) {
	cp, err := p.chessPosition()
	if err != nil {
		return Move{}, err
	}
	token := trimAnnotations(notation)
	if token == "" {
		return Move{}, fmt.Errorf("empty move")
	}
	if m, err := MoveFromUCI(strings.ToLower(token)); err == nil {
		if cm := legalMove(cp, m); cm != nil {
			return moveFromChess(cp, cm), nil
		}
		return Move{}, fmt.Errorf("illegal move %q in %s", notation, p.FEN())
	}
	for _, cm := range cp.ValidMoves() {
		if trimAnnotations((chess.AlgebraicNotation{}).Encode(cp, cm)) == token {
			return moveFromChess(cp, cm), nil
		}
	}
	return Move{}, fmt.Errorf("illegal move %q in %s", notation, p.FEN())
}

// legalMove returns the library move matching m's squares and promotion, or nil.
func legalMove(cp *chess.Position, m Move) *chess.Move {
	for _, cm := range cp.ValidMoves() {
		if int(cm.S1()) == int(m.From) && int(cm.S2()) == int(m.To) && typeFromChess(cm.Promo()) == m.Promotion {
			return cm
		}
	}
	return nil
}

// Apply plays m and returns the resulting position.
func (p Position) Apply(m Move) (Position, error) {
	cp, err := p.chessPosition()
	if err != nil {
		return Position{}, err
	}
	if cm := legalMove(cp, m); cm != nil {
		return fromChess(cp.Update(cm))
	}
	return Position{}, fmt.Errorf("illegal move %s in %s", m.UCI(), p.FEN())
}

// Status reports checkmate or stalemate for the side to move.
func (p Position) Status() Status {
	cp, err := p.chessPosition()
	if err != nil {
		return Ongoing
	}
	switch cp.Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	default:
		return Ongoing
	}
}

func moveFromChess(cp *chess.Position, cm *chess.Move) Move {
	return Move{
		From:      Square(cm.S1()),
		To:        Square(cm.S2()),
		Promotion: typeFromChess(cm.Promo()),
		SAN:       chess.AlgebraicNotation{}.Encode(cp, cm),
	}
}

func colorFromChess(c chess.Color) Color {
	switch c {
	case chess.White:
		return White
	case chess.Black:
		return Black
	default:
		return NoColor
	}
}

func typeFromChess(t chess.PieceType) PieceType {
	switch t {
	case chess.King:
		return King
	case chess.Queen:
		return Queen
	case chess.Rook:
		return Rook
	case chess.Bishop:
		return Bishop
	case chess.Knight:
		return Knight
	case chess.Pawn:
		return Pawn
	default:
		return NoPieceType
	}
}
