package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
)

// Analyzer is one engine session. It is never used by two reviews at once.
type Analyzer interface {
	Analyze(ctx context.Context, pos board.Position, n, depth int) (eval.Analysis, error)
}

// Engines hands out analyzers for the duration of one review.
type Engines interface {
	Acquire(ctx context.Context) (Analyzer, error)
	Release(a Analyzer)
}

// FromPool adapts an eval.Pool.
func FromPool(p *eval.Pool) Engines { return poolEngines{p} }

type poolEngines struct{ p *eval.Pool }

func (pe poolEngines) Acquire(ctx context.Context) (Analyzer, error) {
	e, err := pe.p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (pe poolEngines) Release(a Analyzer) {
	if e, ok := a.(*eval.Engine); ok {
		pe.p.Release(e)
	}
}

// session caches searches by FEN: the position after ply p is the position
// before ply p+1.
type session struct {
	a     Analyzer
	depth int
	topN  int
	cache map[string]eval.Analysis
}

func newSession(a Analyzer, depth, topN int) *session {
	return &session{a: a, depth: depth, topN: topN, cache: make(map[string]eval.Analysis)}
}

// analyze searches pos, retrying once after an engine timeout.
func (s *session) analyze(ctx context.Context, pos board.Position) (eval.Analysis, error) {
	fen := pos.FEN()
	if a, ok := s.cache[fen]; ok {
		return a, nil
	}
	a, err := s.a.Analyze(ctx, pos, s.topN, s.depth)
	var te *eval.EngineTimeoutError
	if errors.As(err, &te) {
		a, err = s.a.Analyze(ctx, pos, s.topN, s.depth)
	}
	if err != nil {
		return eval.Analysis{}, fmt.Errorf("analyze %s: %w", fen, err)
	}
	s.cache[fen] = a
	return a, nil
}
