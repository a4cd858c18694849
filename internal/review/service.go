// Package review runs the full game review: engine pass, classification,
// verified explanations and the game summary.
package review

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eco"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/rating"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/verify"
)

// Config configures a Service.
type Config struct {
	Engines  Engines
	Store    store.Store
	Provider llm.Provider // nil disables explanations
	Openings *eco.Database
	Logger   zerolog.Logger

	Depth         int              // Engine depth (default 14)
	TopN          int              // Candidate moves per position (default 3)
	MaxRetries    int              // Extraction and explanation retries; 0 = default, negative = none
	MaxRunes      int              // Explanation length ceiling (default verify.MaxExplanationRunes)
	Concurrency   int              // Explanation workers (default 4)
	Jitter        time.Duration    // Max random delay before taking a worker slot (default 250ms)
	ExplainLabels []classify.Label // Labels that get commentary (default Inaccuracy, Mistake, Blunder)
}

// Service reviews games.
type Service struct {
	cfg       Config
	log       zerolog.Logger
	extractor *verify.Extractor
	explainer *verify.Explainer
	explain   map[classify.Label]bool
	jitter    func(max time.Duration) time.Duration
}

// NewService creates a Service, filling defaults.
func NewService(cfg Config) (*Service, error) {
	if cfg.Engines == nil {
		return nil, errors.New("review: no engines")
	}
	if cfg.Store == nil {
		return nil, errors.New("review: no store")
	}
	if cfg.Depth == 0 {
		cfg.Depth = 14
	}
	if cfg.TopN == 0 {
		cfg.TopN = 3
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.Jitter == 0 {
		cfg.Jitter = 250 * time.Millisecond
	}
	if cfg.ExplainLabels == nil {
		cfg.ExplainLabels = []classify.Label{classify.Inaccuracy, classify.Mistake, classify.Blunder}
	}
	if cfg.Openings == nil {
		cfg.Openings = eco.Default()
	}

	s := &Service{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "review").Logger(),
		explain: make(map[classify.Label]bool),
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return rand.N(max)
		},
	}
	for _, l := range cfg.ExplainLabels {
		s.explain[l] = true
	}
	if cfg.Provider != nil {
		s.extractor = verify.NewExtractor(verify.ExtractorConfig{
			Provider:   cfg.Provider,
			MaxRetries: cfg.MaxRetries,
			Logger:     cfg.Logger,
		})
		s.explainer = verify.NewExplainer(verify.ExplainerConfig{
			Provider:   cfg.Provider,
			MaxRetries: cfg.MaxRetries,
			MaxRunes:   cfg.MaxRunes,
			Logger:     cfg.Logger,
		})
	}
	return s, nil
}

// Move pairs the engine analysis of a ply with its review.
type Move struct {
	Analysis store.MoveAnalysis `json:"analysis"`
	Review   store.MoveReview   `json:"review"`
}

// PlyError records a ply whose explanation failed.
type PlyError struct {
	Ply   int    `json:"ply"`
	Error string `json:"error"`
}

// BatchResult counts explanation outcomes. Failed plies are listed, never fatal.
type BatchResult struct {
	Generated int        `json:"generated"`
	Cached    int        `json:"cached"`
	Errors    []PlyError `json:"errors"`
	// ServiceBusy is set when a ply failed because the provider stayed rate
	// limited or unavailable; callers may retry later.
	ServiceBusy bool `json:"service_busy,omitempty"`
}

// Report is the complete review of one game.
type Report struct {
	GameID  string            `json:"game_id"`
	Summary store.GameSummary `json:"summary"`
	Moves   []Move            `json:"moves"`
	Batch   BatchResult       `json:"batch"`
}

// NewGameID returns a fresh id for a game without one.
func NewGameID() string { return uuid.NewString() }

// ReviewPGN parses PGN text and reviews it. An empty gameID gets a new id.
func (s *Service) ReviewPGN(ctx context.Context, gameID, pgnText string) (Report, error) {
	g, err := board.LoadPGN(pgnText)
	if err != nil {
		return Report{}, err
	}
	return s.Review(ctx, gameID, g)
}

// Review analyzes every ply of g, classifies it, explains the plies whose label
// is in ExplainLabels and stores the results. Structural, engine, store and
// context errors abort the review. Explanation failures are per ply and land in
// Report.Batch, except a provider hard error, which stops the remaining plies
// and is returned together with the partial report.
func (s *Service) Review(ctx context.Context, gameID string, g *board.Game) (Report, error) {
	if gameID == "" {
		gameID = NewGameID()
	}
	if err := store.CheckID(gameID); err != nil {
		return Report{}, err
	}
	log := s.log.With().Str("game_id", gameID).Logger()
	start := time.Now()

	moves, cs, err := s.engineReview(ctx, gameID, g)
	if err != nil {
		return Report{}, err
	}
	log.Info().Int("plies", len(moves)).Dur("elapsed", time.Since(start)).Msg("engine pass complete")

	batch, batchErr := s.explainAll(ctx, gameID, g, moves, log)
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	summary := s.summarize(gameID, g, cs)
	if err := s.cfg.Store.PutSummary(ctx, summary); err != nil {
		return Report{}, fmt.Errorf("store summary: %w", err)
	}

	reviews, err := s.cfg.Store.Reviews(ctx, gameID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Report{}, fmt.Errorf("load reviews: %w", err)
	}
	for i := range moves {
		if i < len(reviews) && reviews[i].Ply == moves[i].Review.Ply {
			moves[i].Review = reviews[i]
		}
	}

	log.Info().
		Int("generated", batch.Generated).
		Int("cached", batch.Cached).
		Int("errors", len(batch.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("review complete")
	return Report{GameID: gameID, Summary: summary, Moves: moves, Batch: batch}, batchErr
}

// engineReview runs the sequential engine pass on one acquired engine.
func (s *Service) engineReview(ctx context.Context, gameID string, g *board.Game) ([]Move, []classify.Classification, error) {
	an, err := s.cfg.Engines.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire engine: %w", err)
	}
	defer s.cfg.Engines.Release(an)
	sess := newSession(an, s.cfg.Depth, s.cfg.TopN)

	total := g.TotalPlies()
	moves := make([]Move, 0, total)
	cs := make([]classify.Classification, 0, total)
	for ply := 1; ply <= total; ply++ {
		m, c, err := s.reviewPly(ctx, sess, gameID, g, ply)
		if err != nil {
			return nil, nil, fmt.Errorf("ply %d: %w", ply, err)
		}
		moves = append(moves, m)
		cs = append(cs, c)
	}
	return moves, cs, nil
}

func (s *Service) reviewPly(ctx context.Context, sess *session, gameID string, g *board.Game, ply int) (Move, classify.Classification, error) {
	before, err := g.PositionBefore(ply)
	if err != nil {
		return Move{}, classify.Classification{}, err
	}
	after, _ := g.PositionAfter(ply)
	played, _ := g.MoveAt(ply)

	ab, err := sess.analyze(ctx, before)
	if err != nil {
		return Move{}, classify.Classification{}, err
	}
	top, ok := ab.Best()
	if !ok {
		return Move{}, classify.Classification{}, fmt.Errorf("engine returned no candidate moves for %s", before.FEN())
	}
	best, err := before.ParseMove(top.Move)
	if err != nil {
		return Move{}, classify.Classification{}, fmt.Errorf("engine best move %q: %w", top.Move, err)
	}

	aa, err := sess.analyze(ctx, after)
	if err != nil {
		return Move{}, classify.Classification{}, err
	}
	evalAfterBest := aa.Score
	if best.UCI() != played.UCI() {
		bestPos, err := before.Apply(best)
		if err != nil {
			return Move{}, classify.Classification{}, err
		}
		abest, err := sess.analyze(ctx, bestPos)
		if err != nil {
			return Move{}, classify.Classification{}, err
		}
		evalAfterBest = abest.Score
	}

	c := classify.Classify(ply, played.UCI(), best.UCI(), float64(aa.Score.Centipawns), float64(evalAfterBest.Centipawns))
	analysis := store.MoveAnalysis{
		GameID:          gameID,
		Ply:             ply,
		FEN:             before.FEN(),
		Played:          played.UCI(),
		PlayedSAN:       played.SAN,
		Best:            best.UCI(),
		BestSAN:         best.SAN,
		EvalBefore:      ab.Score,
		EvalAfterPlayed: aa.Score,
		EvalAfterBest:   evalAfterBest,
		TopMoves:        ab.Lines,
		Depth:           ab.Depth,
	}
	rev := store.MoveReview{
		GameID:        gameID,
		Ply:           ply,
		Color:         g.Mover(ply).String(),
		SAN:           played.SAN,
		Label:         c.Label,
		CentipawnLoss: c.CentipawnLoss,
		Delta:         c.Delta,
		Accuracy:      rating.MoveAccuracy(c.CentipawnLoss),
	}
	if err := s.cfg.Store.PutAnalysis(ctx, analysis); err != nil {
		return Move{}, classify.Classification{}, fmt.Errorf("store analysis: %w", err)
	}
	if err := s.cfg.Store.PutReview(ctx, rev); err != nil {
		return Move{}, classify.Classification{}, fmt.Errorf("store review: %w", err)
	}
	return Move{Analysis: analysis, Review: rev}, c, nil
}

// explainAll fans out explanations under a bounded worker budget.
func (s *Service) explainAll(ctx context.Context, gameID string, g *board.Game, moves []Move, log zerolog.Logger) (BatchResult, error) {
	batch := BatchResult{Errors: []PlyError{}}
	if s.explainer == nil {
		return batch, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		hardErr error
		eg      errgroup.Group
		sem     = semaphore.NewWeighted(int64(s.cfg.Concurrency))
	)
	record := func(ply int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			batch.Generated++
			return
		}
		batch.Errors = append(batch.Errors, PlyError{Ply: ply, Error: err.Error()})
		if errors.Is(err, llm.ErrServiceBusy) {
			batch.ServiceBusy = true
		}
		if errors.Is(err, llm.ErrProviderHard) && hardErr == nil {
			hardErr = err
			cancel()
		}
	}

	for _, m := range moves {
		if !s.explain[m.Review.Label] {
			continue
		}
		existing, err := s.cfg.Store.Review(ctx, gameID, m.Review.Ply)
		if err == nil && existing.HasExplanation() {
			batch.Cached++
			continue
		}
		ply := m.Review.Ply
		eg.Go(func() error {
			record(ply, s.explainPly(ctx, sem, gameID, g, m, log))
			return nil
		})
	}
	_ = eg.Wait()

	sortErrors(batch.Errors)
	if hardErr != nil {
		return batch, fmt.Errorf("explanations: %w", hardErr)
	}
	return batch, nil
}

func (s *Service) explainPly(ctx context.Context, sem *semaphore.Weighted, gameID string, g *board.Game, m Move, log zerolog.Logger) error {
	ply := m.Review.Ply
	if d := s.jitter(s.cfg.Jitter); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)

	before, _ := g.PositionBefore(ply)
	after, _ := g.PositionAfter(ply)
	played, _ := g.MoveAt(ply)

	ext, err := s.extractor.Extract(ctx, after, played.SAN)
	if err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	log.Debug().Int("ply", ply).Stringer("status", ext.Status).Int("attempts", ext.Attempts).
		Float64("confidence", ext.Verdict.Confidence).Msg("position extracted")

	best, _ := before.ParseMove(m.Analysis.Best)
	mc := verify.MoveContext{
		Ply:           ply,
		Played:        played,
		Best:          best,
		BestLine:      lineSAN(before, bestPV(m.Analysis), 6),
		Label:         string(m.Review.Label),
		CentipawnLoss: m.Review.CentipawnLoss,
		EvalBefore:    m.Analysis.EvalBefore.Display(),
		EvalAfter:     m.Analysis.EvalAfterPlayed.Display(),
		Before:        before,
		After:         after,
	}
	res, err := s.explainer.Explain(ctx, mc, ext.Verdict.Corrected)
	if err != nil {
		return fmt.Errorf("explanation: %w", err)
	}
	if err := s.cfg.Store.AttachExplanation(ctx, gameID, ply, res.Value, res.Status.String()); err != nil {
		return fmt.Errorf("store explanation: %w", err)
	}
	log.Debug().Int("ply", ply).Stringer("status", res.Status).Int("attempts", res.Attempts).Msg("explanation stored")
	return nil
}

func bestPV(a store.MoveAnalysis) []string {
	if len(a.TopMoves) == 0 {
		return nil
	}
	return a.TopMoves[0].PV
}

// lineSAN renders up to max plies of a UCI line in SAN, stopping at the first
// move that does not replay.
func lineSAN(pos board.Position, pv []string, max int) string {
	var out []string
	for i, u := range pv {
		if i >= max {
			break
		}
		m, err := pos.ParseMove(u)
		if err != nil {
			break
		}
		next, err := pos.Apply(m)
		if err != nil {
			break
		}
		out = append(out, m.SAN)
		pos = next
	}
	return strings.Join(out, " ")
}

// Load returns a stored report.
func (s *Service) Load(ctx context.Context, gameID string) (Report, error) {
	sum, err := s.cfg.Store.Summary(ctx, gameID)
	if err != nil {
		return Report{}, err
	}
	analyses, err := s.cfg.Store.Analyses(ctx, gameID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Report{}, err
	}
	reviews, err := s.cfg.Store.Reviews(ctx, gameID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Report{}, err
	}
	byPly := make(map[int]store.MoveReview, len(reviews))
	for _, r := range reviews {
		byPly[r.Ply] = r
	}
	moves := make([]Move, 0, len(analyses))
	for _, a := range analyses {
		moves = append(moves, Move{Analysis: a, Review: byPly[a.Ply]})
	}
	return Report{GameID: gameID, Summary: sum, Moves: moves, Batch: BatchResult{Errors: []PlyError{}}}, nil
}

// EngineTimeout reports whether err came from an engine search running out of time.
func EngineTimeout(err error) bool {
	var te *eval.EngineTimeoutError
	return errors.As(err, &te)
}

// ErrNoProvider is returned by model-backed operations when no provider is configured.
var ErrNoProvider = errors.New("no model provider configured")

// ExtractPosition runs the extraction loop on one position with a caller-chosen
// retry count, capped at verify.MaxRetriesCap.
func (s *Service) ExtractPosition(ctx context.Context, pos board.Position, lastMove string, maxRetries int) (verify.Result[claim.Claim, verify.Verdict], error) {
	if s.extractor == nil {
		return verify.Result[claim.Claim, verify.Verdict]{}, ErrNoProvider
	}
	return s.extractor.ExtractWithRetries(ctx, pos, lastMove, maxRetries)
}
