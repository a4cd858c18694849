package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/prompt"
)

// FallbackConfidence marks a ground-truth claim substituted after retries ran out.
const FallbackConfidence = 0.5

// ExtractorConfig configures position extraction.
type ExtractorConfig struct {
	Provider   llm.Provider
	MaxRetries int // 0 = DefaultMaxRetries, negative = single attempt
	Logger     zerolog.Logger
}

// Extractor asks a model to list the pieces of a position and checks the answer.
type Extractor struct {
	provider   llm.Provider
	maxRetries int
	log        zerolog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	n := cfg.MaxRetries
	switch {
	case n == 0:
		n = DefaultMaxRetries
	case n < 0:
		n = 0
	}
	return &Extractor{
		provider:   cfg.Provider,
		maxRetries: ClampRetries(n),
		log:        cfg.Logger.With().Str("component", "extraction").Logger(),
	}
}

// Extract runs the extraction loop with the configured retry count.
func (e *Extractor) Extract(ctx context.Context, pos board.Position, lastMove string) (Result[claim.Claim, Verdict], error) {
	return e.ExtractWithRetries(ctx, pos, lastMove, e.maxRetries)
}

// ExtractWithRetries runs the extraction loop with an explicit retry count, capped
// at MaxRetriesCap. On success Value is the accepted model claim and
// Verdict.Corrected the ground truth. On exhaustion Value is the ground truth with
// Status Fallback and confidence FallbackConfidence. Only provider hard errors and
// context errors are returned.
func (e *Extractor) ExtractWithRetries(ctx context.Context, pos board.Position, lastMove string, maxRetries int) (Result[claim.Claim, Verdict], error) {
	loop := &Loop[claim.Claim, Verdict]{
		Name:       "extraction",
		MaxRetries: maxRetries,
		Logger:     e.log,
		Attempt: func(ctx context.Context, fb *Feedback[Verdict]) (claim.Claim, error) {
			return e.attempt(ctx, pos, lastMove, fb)
		},
		Validate: func(ctx context.Context, c claim.Claim) (Verdict, error) {
			return Validate(c, pos), nil
		},
		Accept: func(v Verdict) bool {
			return v.IsValid || v.Confidence >= ValidThreshold
		},
		Fallback: func(ex Exhausted[claim.Claim, Verdict]) (claim.Claim, Verdict, Status, error) {
			gt := claim.FromPosition(pos)
			v := Verdict{
				Discrepancies: []string{},
				Confidence:    FallbackConfidence,
				NeedsRevision: true,
				Corrected:     gt,
			}
			if ex.Verdict != nil {
				v.Discrepancies = append(v.Discrepancies, ex.Verdict.Discrepancies...)
			}
			if ex.Err != nil {
				v.Discrepancies = append(v.Discrepancies, fmt.Sprintf("extraction failed: %v", ex.Err))
			}
			return gt, v, Fallback, nil
		},
		Fatal: func(err error) bool {
			return errors.Is(err, llm.ErrProviderHard)
		},
	}
	return loop.Run(ctx)
}

func (e *Extractor) attempt(ctx context.Context, pos board.Position, lastMove string, fb *Feedback[Verdict]) (claim.Claim, error) {
	in := prompt.NewExtraction(pos, lastMove)
	if fb != nil {
		if fb.Verdict != nil {
			in.Discrepancies = fb.Verdict.Discrepancies
			in.Correction = prompt.PieceList(fb.Verdict.Corrected)
		}
		if fb.Err != nil {
			in.PreviousError = fb.Err.Error()
		}
	}
	req, err := in.Request()
	if err != nil {
		return claim.Claim{}, err
	}
	raw, err := e.provider.Generate(ctx, req)
	if err != nil {
		return claim.Claim{}, err
	}
	c, err := claim.Normalize([]byte(llm.StripCodeFences(raw)))
	if err != nil {
		return claim.Claim{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	return c, nil
}
