// Package httpapi exposes the review service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/classify"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/review"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/verify"
)

const maxBodyBytes = 1 << 20

// Reviewer is the part of review.Service the handlers use.
type Reviewer interface {
	ReviewPGN(ctx context.Context, gameID, pgnText string) (review.Report, error)
	Load(ctx context.Context, gameID string) (review.Report, error)
	ExtractPosition(ctx context.Context, pos board.Position, lastMove string, maxRetries int) (verify.Result[claim.Claim, verify.Verdict], error)
}

// EngineStatus reports engine pool activity.
type EngineStatus interface {
	Status() eval.PoolStatus
}

// Handler serves the review API.
type Handler struct {
	reviews  Reviewer
	engines  EngineStatus
	validate *validator.Validate
	log      zerolog.Logger
	// bounds one POST /v1/reviews; 0 leaves it to the client
	reviewTimeout time.Duration
}

// Options configures NewRouter.
type Options struct {
	ReviewTimeout time.Duration
}

// NewRouter creates the HTTP handler with middleware applied.
func NewRouter(log zerolog.Logger, reviews Reviewer, engines EngineStatus, opts Options) http.Handler {
	h := &Handler{
		reviews:       reviews,
		engines:       engines,
		validate:      validator.New(),
		log:           log,
		reviewTimeout: opts.ReviewTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /readyz", h.ready)
	mux.HandleFunc("POST /v1/reviews", h.createReview)
	mux.HandleFunc("GET /v1/reviews/{id}", h.getReview)
	mux.HandleFunc("POST /v1/classify", h.classify)
	mux.HandleFunc("POST /v1/positions/validate", h.validatePosition)
	mux.HandleFunc("POST /v1/positions/extract", h.extractPosition)
	mux.HandleFunc("GET /v1/engine/status", h.engineStatus)

	return CORS(RequestID(AccessLog(log, mux)))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.engines != nil && h.engines.Status().Closed {
		writeError(w, h.log, eval.ErrPoolClosed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReviewRequest is the body of POST /v1/reviews.
type ReviewRequest struct {
	PGN    string `json:"pgn" validate:"required"`
	GameID string `json:"game_id" validate:"omitempty,max=128"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if h.reviewTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.reviewTimeout)
		defer cancel()
	}
	rep, err := h.reviews.ReviewPGN(ctx, req.GameID, req.PGN)
	if err != nil && rep.GameID != "" {
		status, body := errorBody(h.log, err)
		h.log.Warn().Err(err).Str("game_id", rep.GameID).Int("plies", len(rep.Moves)).Msg("review stopped early")
		writeJSONStatus(w, status, PartialReviewResponse{ErrorResponse: body, Report: rep})
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if rep.Batch.ServiceBusy {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeJSONStatus(w, http.StatusCreated, rep)
}

func (h *Handler) getReview(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reviews.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, rep)
}

// ClassifyRequest is the body of POST /v1/classify. Evaluations are centipawns
// from White's perspective.
type ClassifyRequest struct {
	Ply             int      `json:"ply" validate:"min=0"`
	Played          string   `json:"played" validate:"required"`
	Best            string   `json:"best" validate:"required"`
	EvalAfterPlayed *float64 `json:"eval_after_played" validate:"required"`
	EvalAfterBest   *float64 `json:"eval_after_best" validate:"required"`
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, classify.Classify(req.Ply, req.Played, req.Best, *req.EvalAfterPlayed, *req.EvalAfterBest))
}

// ValidateRequest is the body of POST /v1/positions/validate. Claim is raw model
// output; variant keys are normalized before comparison.
type ValidateRequest struct {
	FEN   string          `json:"fen" validate:"required"`
	Claim json.RawMessage `json:"claim" validate:"required"`
}

func (h *Handler) validatePosition(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	pos, err := board.ParseFEN(req.FEN)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	c, err := claim.Normalize(req.Claim)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, verify.Validate(c, pos))
}

// ExtractRequest is the body of POST /v1/positions/extract.
type ExtractRequest struct {
	FEN        string `json:"fen" validate:"required"`
	LastMove   string `json:"last_move"`
	MaxRetries *int   `json:"max_retries" validate:"omitempty,min=0"`
}

// ExtractResponse reports the extraction outcome.
type ExtractResponse struct {
	Claim    claim.Claim    `json:"claim"`
	Verdict  verify.Verdict `json:"verdict"`
	Status   verify.Status  `json:"status"`
	Attempts int            `json:"attempts"`
}

func (h *Handler) extractPosition(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}
	pos, err := board.ParseFEN(req.FEN)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	retries := verify.DefaultMaxRetries
	if req.MaxRetries != nil {
		retries = *req.MaxRetries
	}
	res, err := h.reviews.ExtractPosition(r.Context(), pos, req.LastMove, retries)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, ExtractResponse{Claim: res.Value, Verdict: res.Verdict, Status: res.Status, Attempts: res.Attempts})
}

func (h *Handler) engineStatus(w http.ResponseWriter, r *http.Request) {
	if h.engines == nil {
		writeJSON(w, map[string]any{"enabled": false})
		return
	}
	writeJSON(w, h.engines.Status())
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, h.log, &badRequestError{fmt.Errorf("decode body: %w", err)})
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, h.log, &badRequestError{err})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errUnknown = errors.New("internal error")
