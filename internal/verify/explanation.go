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

// MoveContext describes the move being explained.
type MoveContext struct {
	Ply           int
	Played        board.Move
	Best          board.Move
	BestLine      string
	Label         string
	CentipawnLoss int
	EvalBefore    string
	EvalAfter     string
	Before        board.Position
	After         board.Position
}

// MoveNumber returns the fullmove number of the played move.
func (mc MoveContext) MoveNumber() int { return mc.Before.FullMove() }

// Mover returns the side that played the move.
func (mc MoveContext) Mover() board.Color { return mc.Before.Turn() }

// ExplainerConfig configures commentary generation.
type ExplainerConfig struct {
	Provider   llm.Provider
	MaxRetries int // 0 = DefaultMaxRetries, negative = single attempt
	MaxRunes   int // 0 = MaxExplanationRunes
	Logger     zerolog.Logger
}

// Explainer writes move commentary and has it audited before accepting it.
type Explainer struct {
	provider   llm.Provider
	maxRetries int
	maxRunes   int
	log        zerolog.Logger
}

// NewExplainer creates an Explainer.
func NewExplainer(cfg ExplainerConfig) *Explainer {
	n := cfg.MaxRetries
	switch {
	case n == 0:
		n = DefaultMaxRetries
	case n < 0:
		n = 0
	}
	if cfg.MaxRunes == 0 {
		cfg.MaxRunes = MaxExplanationRunes
	}
	return &Explainer{
		provider:   cfg.Provider,
		maxRetries: ClampRetries(n),
		maxRunes:   cfg.MaxRunes,
		log:        cfg.Logger.With().Str("component", "explanation").Logger(),
	}
}

// Explain generates commentary conditioned on the verified claim of the position
// after the move. A draft is accepted only when the model audit and the piece
// mention scan both pass. On exhaustion the last audited draft is sanitized and
// returned with Status Sanitized; if no draft was ever audited an error wrapping
// ErrNoAttempt is returned so nothing unvalidated is stored.
func (x *Explainer) Explain(ctx context.Context, mc MoveContext, verified claim.Claim) (Result[string, Verdict], error) {
	pieces := prompt.PieceList(verified)
	before := claim.FromPosition(mc.Before)

	loop := &Loop[string, Verdict]{
		Name:       "explanation",
		MaxRetries: x.maxRetries,
		Logger:     x.log.With().Int("ply", mc.Ply).Logger(),
		Attempt: func(ctx context.Context, fb *Feedback[Verdict]) (string, error) {
			return x.generate(ctx, mc, pieces, fb)
		},
		Validate: func(ctx context.Context, text string) (Verdict, error) {
			return x.audit(ctx, mc, text, pieces, verified, before)
		},
		Accept: func(v Verdict) bool { return v.IsValid },
		Fallback: func(ex Exhausted[string, Verdict]) (string, Verdict, Status, error) {
			if ex.Checked == nil || ex.Verdict == nil {
				if ex.Err == nil {
					return "", Verdict{}, Sanitized, fmt.Errorf("ply %d: %w", mc.Ply, ErrNoAttempt)
				}
				return "", Verdict{}, Sanitized, fmt.Errorf("ply %d: %w: %w", mc.Ply, ErrNoAttempt, ex.Err)
			}
			text := Sanitize(*ex.Checked, UnsupportedMentions(*ex.Checked, verified, before))
			if text == "" {
				return "", Verdict{}, Sanitized, fmt.Errorf("ply %d: %w: draft empty after sanitizing", mc.Ply, ErrNoAttempt)
			}
			return text, *ex.Verdict, Sanitized, nil
		},
		Fatal: func(err error) bool {
			return errors.Is(err, llm.ErrProviderHard)
		},
	}
	return loop.Run(ctx)
}

func (x *Explainer) generate(ctx context.Context, mc MoveContext, pieces string, fb *Feedback[Verdict]) (string, error) {
	in := prompt.Explanation{
		MoveNumber:    mc.MoveNumber(),
		Mover:         mc.Mover().String(),
		Played:        mc.Played.String(),
		BestLine:      mc.BestLine,
		Label:         mc.Label,
		CentipawnLoss: mc.CentipawnLoss,
		EvalBefore:    mc.EvalBefore,
		EvalAfter:     mc.EvalAfter,
		PieceList:     pieces,
		FEN:           mc.After.FEN(),
	}
	if mc.Best.From.Valid() && mc.Best.UCI() != mc.Played.UCI() {
		in.Best = mc.Best.String()
	}
	if fb != nil && fb.Verdict != nil {
		in.Discrepancies = fb.Verdict.Discrepancies
	}
	req, err := in.Request()
	if err != nil {
		return "", err
	}
	raw, err := x.provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	resp, err := llm.Decode[prompt.ExplanationResponse](raw)
	if err != nil {
		return "", err
	}
	return TruncateRunes(resp.Explanation, x.maxRunes), nil
}

func (x *Explainer) audit(ctx context.Context, mc MoveContext, text, pieces string, verified, before claim.Claim) (Verdict, error) {
	legal, err := mc.Before.LegalMoves()
	if err != nil {
		return Verdict{}, err
	}
	sans := make([]string, len(legal))
	for i, m := range legal {
		sans[i] = m.SAN
	}
	in := prompt.Audit{
		Explanation: text,
		Mover:       mc.Mover().String(),
		Played:      mc.Played.String(),
		FENBefore:   mc.Before.FEN(),
		LegalMoves:  sans,
		PieceList:   pieces,
	}
	if mc.Best.From.Valid() {
		in.Best = mc.Best.String()
	}
	req, err := in.Request()
	if err != nil {
		return Verdict{}, err
	}
	raw, err := x.provider.Generate(ctx, req)
	if err != nil {
		return Verdict{}, err
	}
	resp, err := llm.Decode[prompt.AuditResponse](raw)
	if err != nil {
		return Verdict{}, err
	}

	v := Verdict{
		IsValid:       resp.IsValid,
		Discrepancies: append([]string{}, resp.Discrepancies...),
		Confidence:    resp.Confidence,
		NeedsRevision: resp.NeedsRevision,
		Corrected:     verified,
	}
	if len(v.Discrepancies) > 0 {
		v.IsValid = false
	}
	for _, m := range UnsupportedMentions(text, verified, before) {
		v.Discrepancies = append(v.Discrepancies, m.discrepancy())
		v.IsValid = false
	}
	if !v.IsValid {
		v.NeedsRevision = true
	}
	return v, nil
}
