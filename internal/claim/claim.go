// Package claim models a per-color, per-type list of occupied squares. The same shape
// carries both untrusted model output and the ground truth derived from a board.Position.
package claim

import (
	"sort"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
)

// Pieces maps each piece type to the squares it occupies for one color.
type Pieces struct {
	King   []string `json:"king"`
	Queen  []string `json:"queen"`
	Rook   []string `json:"rook"`
	Bishop []string `json:"bishop"`
	Knight []string `json:"knight"`
	Pawn   []string `json:"pawn"`
}

// Claim is a full piece listing plus the side to move ("white" or "black").
type Claim struct {
	ActiveColor string `json:"active_color"`
	White       Pieces `json:"white"`
	Black       Pieces `json:"black"`
}

func (p *Pieces) slot(t board.PieceType) *[]string {
	switch t {
	case board.King:
		return &p.King
	case board.Queen:
		return &p.Queen
	case board.Rook:
		return &p.Rook
	case board.Bishop:
		return &p.Bishop
	case board.Knight:
		return &p.Knight
	case board.Pawn:
		return &p.Pawn
	}
	return nil
}

func (c *Claim) side(color board.Color) *Pieces {
	switch color {
	case board.White:
		return &c.White
	case board.Black:
		return &c.Black
	}
	return nil
}

// FromPosition builds the ground-truth claim for p. Squares are sorted a1..h8.
func FromPosition(p board.Position) Claim {
	c := emptyClaim()
	c.ActiveColor = p.Turn().String()
	p.Occupied(func(sq board.Square, pc board.Piece) {
		s := c.side(pc.Color).slot(pc.Type)
		*s = append(*s, sq.String())
	})
	return c
}

// Squares returns the claimed squares for color and type, sorted.
func (c Claim) Squares(color board.Color, t board.PieceType) []string {
	side := c.side(color)
	if side == nil {
		return nil
	}
	s := side.slot(t)
	if s == nil {
		return nil
	}
	out := append([]string(nil), (*s)...)
	sort.Strings(out)
	return out
}

// Count returns how many pieces of type t the claim gives to color.
func (c Claim) Count(color board.Color, t board.PieceType) int {
	return len(c.Squares(color, t))
}

// Total returns the number of pieces claimed for color.
func (c Claim) Total(color board.Color) int {
	n := 0
	for _, t := range board.PieceTypes {
		n += c.Count(color, t)
	}
	return n
}

// Has reports whether the claim places a color/type piece on square.
func (c Claim) Has(color board.Color, t board.PieceType, square string) bool {
	for _, s := range c.Squares(color, t) {
		if s == square {
			return true
		}
	}
	return false
}
