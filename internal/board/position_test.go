package board

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFEN_RoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
		"r3k2r/8/8/8/8/8/8/R3K2R b Kq - 5 40",
		"8/8/8/4k3/8/8/4K3/8 w - - 0 60",
	}
	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			p, err := ParseFEN(fen)
			if err != nil {
				t.Fatalf("ParseFEN: %v", err)
			}
			again, err := ParseFEN(p.FEN())
			if err != nil {
				t.Fatalf("ParseFEN(FEN()): %v", err)
			}
			if again != p {
				t.Errorf("round trip changed position:\n got  %s\n want %s", again.FEN(), p.FEN())
			}
		})
	}
}

func TestParseFEN_Invalid(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"garbage", "not a fen"},
		{"empty board", "8/8/8/8/8/8/8/8 w - - 0 1"},
		{"no black king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"two kings each", "kk6/8/8/8/8/8/8/KK6 w - - 0 1"},
		{"sixteen queens", "qqqqqqqq/qqqqqqqq/8/8/8/8/8/4K2k w - - 0 1"},
		{"queens beyond promotions", "4k3/8/8/8/8/8/PPPPPPPP/QQ2K3 w - - 0 1"},
		{"pawn on back rank", "4k2P/8/8/8/8/8/8/4K3 w - - 0 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFEN(tt.fen)
			if !errors.Is(err, ErrInvalidFEN) {
				t.Fatalf("ParseFEN(%q) error = %v, want ErrInvalidFEN", tt.fen, err)
			}
		})
	}
}

func TestPosition_PieceAt(t *testing.T) {
	p := StartPosition()
	tests := []struct {
		sq   string
		want Piece
	}{
		{"e1", Piece{White, King}},
		{"d8", Piece{Black, Queen}},
		{"a2", Piece{White, Pawn}},
		{"g8", Piece{Black, Knight}},
		{"e4", Piece{}},
	}
	for _, tt := range tests {
		sq, _ := ParseSquare(tt.sq)
		if got := p.PieceAt(sq); got != tt.want {
			t.Errorf("PieceAt(%s) = %v, want %v", tt.sq, got, tt.want)
		}
	}
	if p.Turn() != White {
		t.Errorf("Turn() = %v, want white", p.Turn())
	}
}

func TestPosition_ParseMove(t *testing.T) {
	p := StartPosition()
	tests := []struct {
		in      string
		wantUCI string
		wantSAN string
	}{
		{"e4", "e2e4", "e4"},
		{"e2e4", "e2e4", "e4"},
		{"Nf3", "g1f3", "Nf3"},
		{"g1f3", "g1f3", "Nf3"},
		{"G1F3", "g1f3", "Nf3"},
		{"Nf3!?", "g1f3", "Nf3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := p.ParseMove(tt.in)
			if err != nil {
				t.Fatalf("ParseMove(%s): %v", tt.in, err)
			}
			if m.UCI() != tt.wantUCI || m.SAN != tt.wantSAN {
				t.Errorf("ParseMove(%s) = %s/%s, want %s/%s", tt.in, m.UCI(), m.SAN, tt.wantUCI, tt.wantSAN)
			}
		})
	}

	for _, bad := range []string{"e5", "Ke2", "e2e5", ""} {
		if _, err := p.ParseMove(bad); err == nil {
			t.Errorf("ParseMove(%q) expected error", bad)
		}
	}
}

func TestPosition_ApplyIsImmutable(t *testing.T) {
	p := StartPosition()
	m, err := p.ParseMove("e4")
	if err != nil {
		t.Fatal(err)
	}
	next, err := p.Apply(m)
	if err != nil {
		t.Fatal(err)
	}
	if p != StartPosition() {
		t.Error("Apply mutated the source position")
	}
	e4, _ := ParseSquare("e4")
	if next.PieceAt(e4) != (Piece{White, Pawn}) {
		t.Errorf("after e4 PieceAt(e4) = %v", next.PieceAt(e4))
	}
	if next.Turn() != Black {
		t.Errorf("after e4 Turn() = %v, want black", next.Turn())
	}
}

func TestPosition_Grid(t *testing.T) {
	grid := StartPosition().Grid()
	if !strings.Contains(grid, "8 | r n b q k b n r |") {
		t.Errorf("grid missing rank 8:\n%s", grid)
	}
	if !strings.Contains(grid, "1 | R N B Q K B N R |") {
		t.Errorf("grid missing rank 1:\n%s", grid)
	}
	if !strings.Contains(grid, "4 | . . . . . . . . |") {
		t.Errorf("grid missing empty rank 4:\n%s", grid)
	}
}

func TestPosition_Status(t *testing.T) {
	mate, err := ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatal(err)
	}
	if got := mate.Status(); got != Checkmate {
		t.Errorf("Status() = %v, want checkmate", got)
	}
	stale, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if got := stale.Status(); got != Stalemate {
		t.Errorf("Status() = %v, want stalemate", got)
	}
	if got := StartPosition().Status(); got != Ongoing {
		t.Errorf("Status() = %v, want ongoing", got)
	}
}
