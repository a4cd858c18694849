// Package eval runs a UCI chess engine and reports evaluations from White's
// perspective.
package eval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
)

// EngineTimeoutError is returned when a search exceeds its time budget. The
// engine process is discarded; callers may retry the position once.
type EngineTimeoutError struct {
	FEN    string
	Depth  int
	Budget time.Duration
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("engine search timed out after %s (depth %d, fen %s)", e.Budget, e.Depth, e.FEN)
}

// EngineConfig configures one engine process.
type EngineConfig struct {
	StockfishPath string
	Logger        zerolog.Logger
	HashMB        int           // Stockfish hash table size
	Threads       int           // Stockfish threads
	Nice          int           // Nice value for the process (0 = disabled)
	Timeout       time.Duration // Budget per search (0 = 30s)
}

// Line is one ranked candidate move. Rank 1 is best.
type Line struct {
	Rank  int      `json:"rank"`
	Move  string   `json:"move"`
	Score Score    `json:"score"`
	PV    []string `json:"pv"`
}

// Display renders the line's score.
func (l Line) Display() string { return l.Score.Display() }

// Analysis is the result of one search: the position score, its principal
// variation, and the top candidate moves.
type Analysis struct {
	FEN   string   `json:"fen"`
	Depth int      `json:"depth"`
	Score Score    `json:"score"`
	PV    []string `json:"pv"`
	Lines []Line   `json:"lines"`
}

// Best returns the top line, if any.
func (a Analysis) Best() (Line, bool) {
	if len(a.Lines) == 0 {
		return Line{}, false
	}
	return a.Lines[0], true
}

// rawLine is a search result in side-to-move perspective.
type rawLine struct {
	MultiPV int
	Depth   int
	Score   int
	Mate    bool
	Moves   []string
}

// searcher is the process-facing half of an Engine.
type searcher interface {
	Search(fen string, depth, multiPV int) ([]rawLine, error)
	Close() error
}

// Engine owns one engine process, spawned on first use and reused afterwards.
// An Engine must not be shared between concurrent analyses; take one from a Pool.
type Engine struct {
	cfg         EngineConfig
	log         zerolog.Logger
	newSearcher func() (searcher, error)

	mu sync.Mutex
	s  searcher

	searches atomic.Int64
	timeouts atomic.Int64
	spawns   atomic.Int64
}

// NewEngine creates an Engine. The process starts lazily.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.HashMB == 0 {
		cfg.HashMB = 128
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	e := &Engine{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "engine").Logger(),
	}
	e.newSearcher = func() (searcher, error) { return spawnUCI(e.cfg, e.log) }
	return e
}

// Evaluate returns the score and principal variation of pos.
func (e *Engine) Evaluate(ctx context.Context, pos board.Position, depth int) (Analysis, error) {
	return e.Analyze(ctx, pos, 1, depth)
}

// TopMoves returns up to n candidate moves, best first.
func (e *Engine) TopMoves(ctx context.Context, pos board.Position, n, depth int) ([]Line, error) {
	a, err := e.Analyze(ctx, pos, n, depth)
	if err != nil {
		return nil, err
	}
	return a.Lines, nil
}

// Analyze runs one search with n principal variations and returns the position
// score together with the ranked lines. Checkmate and stalemate positions are
// scored without consulting the engine.
func (e *Engine) Analyze(ctx context.Context, pos board.Position, n, depth int) (Analysis, error) {
	if n < 1 {
		n = 1
	}
	fen := pos.FEN()
	a := Analysis{FEN: fen, Depth: depth, PV: []string{}, Lines: []Line{}}
	switch pos.Status() {
	case board.Checkmate:
		a.Score = Checkmated(pos.Turn() == board.Black)
		return a, nil
	case board.Stalemate:
		return a, nil
	}

	raw, err := e.search(ctx, fen, depth, n)
	if err != nil {
		return Analysis{}, err
	}
	if len(raw) == 0 {
		return Analysis{}, fmt.Errorf("no results from engine for %s", fen)
	}

	blackToMove := pos.Turn() == board.Black
	for i, r := range raw {
		l := Line{Rank: i + 1, Score: normalize(r, blackToMove), PV: r.Moves}
		if len(r.Moves) > 0 {
			l.Move = r.Moves[0]
		}
		a.Lines = append(a.Lines, l)
	}
	a.Score = a.Lines[0].Score
	a.PV = a.Lines[0].PV
	return a, nil
}

// normalize converts a side-to-move score to White's perspective.
func normalize(r rawLine, blackToMove bool) Score {
	score := r.Score
	if blackToMove {
		score = -score
	}
	if r.Mate {
		return MateIn(score)
	}
	return Centipawns(score)
}

func (e *Engine) search(ctx context.Context, fen string, depth, multiPV int) ([]rawLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s == nil {
		s, err := e.newSearcher()
		if err != nil {
			return nil, fmt.Errorf("start engine: %w", err)
		}
		e.s = s
		e.spawns.Add(1)
	}
	e.searches.Add(1)

	type result struct {
		lines []rawLine
		err   error
	}
	done := make(chan result, 1)
	s := e.s
	go func() {
		lines, err := s.Search(fen, depth, multiPV)
		done <- result{lines, err}
	}()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err != nil {
			e.discard()
			return nil, fmt.Errorf("engine search: %w", r.err)
		}
		return rankLines(r.lines), nil
	case <-timer.C:
		e.timeouts.Add(1)
		e.log.Warn().Str("fen", fen).Int("depth", depth).Dur("budget", e.cfg.Timeout).Msg("engine search timed out")
		e.discard()
		return nil, &EngineTimeoutError{FEN: fen, Depth: depth, Budget: e.cfg.Timeout}
	case <-ctx.Done():
		e.discard()
		return nil, ctx.Err()
	}
}

// discard closes the current process so the next search starts a fresh one.
// Callers hold e.mu.
func (e *Engine) discard() {
	if e.s == nil {
		return
	}
	if err := e.s.Close(); err != nil {
		e.log.Debug().Err(err).Msg("close engine")
	}
	e.s = nil
}

// rankLines keeps the deepest result per principal variation, ordered by PV index.
func rankLines(lines []rawLine) []rawLine {
	byPV := make(map[int]rawLine)
	for _, l := range lines {
		pv := l.MultiPV
		if pv == 0 {
			pv = 1
		}
		if cur, ok := byPV[pv]; !ok || l.Depth > cur.Depth {
			byPV[pv] = l
		}
	}
	out := make([]rawLine, 0, len(byPV))
	for _, l := range byPV {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return pvIndex(out[i]) < pvIndex(out[j]) })
	return out
}

func pvIndex(l rawLine) int {
	if l.MultiPV == 0 {
		return 1
	}
	return l.MultiPV
}

// Close stops the engine process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discard()
	return nil
}

// Stats returns counters for status reporting.
func (e *Engine) Stats() (searches, timeouts, spawns int64) {
	return e.searches.Load(), e.timeouts.Load(), e.spawns.Load()
}

// uciSearcher drives a Stockfish process through freeeve/uci.
type uciSearcher struct {
	eng     *uci.Engine
	opts    uci.Options
	multiPV int
}

func spawnUCI(cfg EngineConfig, log zerolog.Logger) (searcher, error) {
	eng, err := uci.NewEngine(cfg.StockfishPath)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}

	// Set nice value for lower CPU priority if configured (after options so engine is initialized)
	if cfg.Nice > 0 {
		nice := cfg.Nice
		if nice > 19 {
			log.Warn().Int("requested", nice).Int("clamped", 19).Msg("nice value clamped to max 19")
			nice = 19
		}
		if err := eng.SetNice(nice); err != nil {
			log.Warn().Err(err).Int("nice", nice).Msg("failed to set nice value")
		}
	}
	log.Info().Str("path", cfg.StockfishPath).Int("threads", cfg.Threads).Int("hash_mb", cfg.HashMB).Msg("engine started")
	return &uciSearcher{eng: eng, opts: opts, multiPV: 1}, nil
}

func (u *uciSearcher) Search(fen string, depth, multiPV int) ([]rawLine, error) {
	if multiPV != u.multiPV {
		opts := u.opts
		opts.MultiPV = multiPV
		if err := u.eng.SetOptions(opts); err != nil {
			return nil, fmt.Errorf("set multipv: %w", err)
		}
		u.multiPV = multiPV
	}
	if err := u.eng.SetFEN(fen); err != nil {
		return nil, fmt.Errorf("set FEN: %w", err)
	}
	results, err := u.eng.GoDepth(depth, uci.HighestDepthOnly)
	if err != nil {
		return nil, err
	}
	lines := make([]rawLine, 0, len(results.Results))
	for _, r := range results.Results {
		lines = append(lines, rawLine{
			MultiPV: r.MultiPV,
			Depth:   r.Depth,
			Score:   r.Score,
			Mate:    r.Mate,
			Moves:   r.BestMoves,
		})
	}
	return lines, nil
}

func (u *uciSearcher) Close() error {
	u.eng.Close()
	return nil
}
