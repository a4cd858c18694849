package eval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
)

type fakeSearcher struct {
	mu     sync.Mutex
	lines  []rawLine
	err    error
	block  chan struct{}
	calls  int
	closed bool
	gotPV  int
}

func (f *fakeSearcher) Search(fen string, depth, multiPV int) ([]rawLine, error) {
	f.mu.Lock()
	f.calls++
	f.gotPV = multiPV
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.lines, f.err
}

func (f *fakeSearcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testEngine(t *testing.T, timeout time.Duration, searchers ...*fakeSearcher) *Engine {
	t.Helper()
	e := NewEngine(EngineConfig{Timeout: timeout, Logger: zerolog.Nop()})
	next := 0
	e.newSearcher = func() (searcher, error) {
		if next >= len(searchers) {
			return nil, errors.New("no more fake engines")
		}
		s := searchers[next]
		next++
		return s, nil
	}
	return e
}

func mustFEN(t *testing.T, fen string) board.Position {
	t.Helper()
	p, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return p
}

func TestScore_Display(t *testing.T) {
	tests := []struct {
		s    Score
		want string
	}{
		{Centipawns(35), "+0.35"},
		{Centipawns(-120), "-1.20"},
		{Centipawns(0), "0.00"},
		{MateIn(3), "#3"},
		{MateIn(-2), "#-2"},
		{Checkmated(true), "1-0"},
		{Checkmated(false), "0-1"},
	}
	for _, tt := range tests {
		if got := tt.s.Display(); got != tt.want {
			t.Errorf("%+v.Display() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestScore_Mate(t *testing.T) {
	if s := MateIn(-4); s.Centipawns != -MateScore || !s.IsMate() {
		t.Errorf("MateIn(-4) = %+v", s)
	}
	if Centipawns(9999).IsMate() {
		t.Error("9999 is not a mate score")
	}
}

func TestEngine_WhitePerspective(t *testing.T) {
	fs := &fakeSearcher{lines: []rawLine{
		{MultiPV: 1, Depth: 12, Score: 50, Moves: []string{"e7e5", "g1f3"}},
	}}
	e := testEngine(t, time.Second, fs)

	black := mustFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	a, err := e.Evaluate(context.Background(), black, 12)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Score != Centipawns(-50) {
		t.Errorf("black to move +50 should be -50 for White, got %+v", a.Score)
	}
	if diff := cmp.Diff([]string{"e7e5", "g1f3"}, a.PV); diff != "" {
		t.Errorf("PV mismatch (-want +got):\n%s", diff)
	}

	a, err = e.Evaluate(context.Background(), board.StartPosition(), 12)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if a.Score != Centipawns(50) {
		t.Errorf("white to move score = %+v, want +50", a.Score)
	}
}

func TestEngine_MateScores(t *testing.T) {
	fs := &fakeSearcher{lines: []rawLine{{MultiPV: 1, Depth: 20, Score: 3, Mate: true, Moves: []string{"d8h4"}}}}
	e := testEngine(t, time.Second, fs)
	pos := mustFEN(t, "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2")
	a, err := e.Evaluate(context.Background(), pos, 20)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score != MateIn(-3) || a.Score.Display() != "#-3" {
		t.Errorf("score = %+v (%s), want #-3", a.Score, a.Score.Display())
	}
}

func TestEngine_TerminalPositionsSkipEngine(t *testing.T) {
	fs := &fakeSearcher{}
	e := testEngine(t, time.Second, fs)

	mated := mustFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	a, err := e.Evaluate(context.Background(), mated, 10)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score.Display() != "0-1" || len(a.Lines) != 0 {
		t.Errorf("checkmate analysis = %+v", a)
	}

	stale := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	a, err = e.Evaluate(context.Background(), stale, 10)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score != Centipawns(0) {
		t.Errorf("stalemate score = %+v", a.Score)
	}
	if fs.calls != 0 {
		t.Errorf("engine searched %d times for terminal positions", fs.calls)
	}
}

func TestEngine_TopMovesRanked(t *testing.T) {
	fs := &fakeSearcher{lines: []rawLine{
		{MultiPV: 2, Depth: 10, Score: 20, Moves: []string{"d2d4"}},
		{MultiPV: 1, Depth: 10, Score: 30, Moves: []string{"e2e4", "e7e5"}},
		{MultiPV: 3, Depth: 10, Score: 15, Moves: []string{"g1f3"}},
		{MultiPV: 1, Depth: 9, Score: 99, Moves: []string{"a2a3"}},
	}}
	e := testEngine(t, time.Second, fs)
	lines, err := e.TopMoves(context.Background(), board.StartPosition(), 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []Line{
		{Rank: 1, Move: "e2e4", Score: Centipawns(30), PV: []string{"e2e4", "e7e5"}},
		{Rank: 2, Move: "d2d4", Score: Centipawns(20), PV: []string{"d2d4"}},
		{Rank: 3, Move: "g1f3", Score: Centipawns(15), PV: []string{"g1f3"}},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("TopMoves mismatch (-want +got):\n%s", diff)
	}
	if fs.gotPV != 3 {
		t.Errorf("multiPV = %d, want 3", fs.gotPV)
	}
}

func TestEngine_TimeoutDiscardsProcess(t *testing.T) {
	stuck := &fakeSearcher{block: make(chan struct{})}
	defer close(stuck.block)
	fresh := &fakeSearcher{lines: []rawLine{{MultiPV: 1, Depth: 8, Score: 12, Moves: []string{"e2e4"}}}}
	e := testEngine(t, 20*time.Millisecond, stuck, fresh)

	_, err := e.Evaluate(context.Background(), board.StartPosition(), 8)
	var te *EngineTimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *EngineTimeoutError", err)
	}
	if te.Depth != 8 || te.FEN != board.StartFEN {
		t.Errorf("timeout error = %+v", te)
	}
	stuck.mu.Lock()
	closed := stuck.closed
	stuck.mu.Unlock()
	if !closed {
		t.Error("timed-out engine should be closed")
	}

	a, err := e.Evaluate(context.Background(), board.StartPosition(), 8)
	if err != nil {
		t.Fatalf("retry after timeout: %v", err)
	}
	if a.Score != Centipawns(12) {
		t.Errorf("score = %+v", a.Score)
	}
	searches, timeouts, spawns := e.Stats()
	if searches != 2 || timeouts != 1 || spawns != 2 {
		t.Errorf("stats = %d/%d/%d, want 2/1/2", searches, timeouts, spawns)
	}
}

func TestEngine_SearchErrorRestarts(t *testing.T) {
	broken := &fakeSearcher{err: errors.New("broken pipe")}
	e := testEngine(t, time.Second, broken)
	if _, err := e.Evaluate(context.Background(), board.StartPosition(), 5); err == nil {
		t.Fatal("expected error")
	}
	if !broken.closed {
		t.Error("failed engine should be closed")
	}
	if _, err := e.Evaluate(context.Background(), board.StartPosition(), 5); err == nil {
		t.Fatal("expected spawn error for second engine")
	}
}

func TestEngine_NoResults(t *testing.T) {
	e := testEngine(t, time.Second, &fakeSearcher{})
	if _, err := e.Evaluate(context.Background(), board.StartPosition(), 5); err == nil {
		t.Fatal("expected error for empty results")
	}
}

func TestPool_AcquireRelease(t *testing.T) {
	e1 := testEngine(t, time.Second)
	p := newPool([]*Engine{e1})

	got, err := p.Acquire(context.Background())
	if err != nil || got != e1 {
		t.Fatalf("Acquire = %v, %v", got, err)
	}
	if st := p.Status(); st.InUse != 1 || st.Size != 1 {
		t.Errorf("status = %+v", st)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("second Acquire err = %v, want deadline exceeded", err)
	}

	p.Release(got)
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
}

func TestPool_Closed(t *testing.T) {
	p := NewPool(PoolConfig{Engine: EngineConfig{Logger: zerolog.Nop()}})
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("err = %v, want ErrPoolClosed", err)
	}
	if !p.Status().Closed {
		t.Error("status should report closed")
	}
}
