package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/board"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/claim"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/eval"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/review"
	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/store"
)

const retryAfterSeconds = "30"

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var (
		bad *badRequestError
		mg  *board.MalformedGameError
		ip  *board.InvalidPlyError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &mg), errors.As(err, &ip), errors.Is(err, board.ErrInvalidFEN),
		errors.Is(err, claim.ErrUnrecognized), errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, llm.ErrServiceBusy):
		return http.StatusServiceUnavailable, "service_busy"
	case errors.Is(err, eval.ErrPoolClosed), errors.Is(err, review.ErrNoProvider):
		return http.StatusServiceUnavailable, "unavailable"
	case review.EngineTimeout(err):
		return http.StatusGatewayTimeout, "engine_timeout"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, llm.ErrProviderHard), errors.Is(err, llm.ErrMalformedResponse):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// PartialReviewResponse is returned when a review stopped early but some plies
// were already reviewed and stored.
type PartialReviewResponse struct {
	ErrorResponse
	Report review.Report `json:"report"`
}

// errorBody picks the status and body for err, masking internal failures.
func errorBody(log zerolog.Logger, err error) (int, ErrorResponse) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		msg = errUnknown.Error()
	}
	return status, ErrorResponse{Error: msg, Code: code}
}

func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, body := errorBody(log, err)
	if body.Code == "service_busy" || body.Code == "unavailable" {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeJSONStatus(w, status, body)
}
