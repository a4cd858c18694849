package verify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries gives three attempts in total.
	DefaultMaxRetries = 2
	// MaxRetriesCap bounds any caller-requested retry count.
	MaxRetriesCap = 4
)

// ErrNoAttempt is returned by a fallback that has nothing it may safely return.
var ErrNoAttempt = errors.New("no validated attempt")

// State is a retry loop state.
type State uint8

const (
	Attempting State = iota
	Validating
	Succeeded
	Retrying
	ExhaustedFallback
)

func (s State) String() string {
	switch s {
	case Attempting:
		return "attempting"
	case Validating:
		return "validating"
	case Succeeded:
		return "succeeded"
	case Retrying:
		return "retrying"
	case ExhaustedFallback:
		return "exhausted_fallback"
	default:
		return "unknown"
	}
}

// Status tags how much a loop result can be trusted.
type Status uint8

const (
	// Verified results passed validation.
	Verified Status = iota
	// Fallback results were substituted from ground truth after retries ran out.
	Fallback
	// Sanitized results are the last model draft with invalid markers removed.
	Sanitized
)

func (s Status) String() string {
	switch s {
	case Verified:
		return "verified"
	case Fallback:
		return "fallback"
	case Sanitized:
		return "sanitized"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "verified":
		*s = Verified
	case "fallback":
		*s = Fallback
	case "sanitized":
		*s = Sanitized
	default:
		return errors.New("unknown status " + string(b))
	}
	return nil
}

// Feedback carries what went wrong in the previous attempt. Verdict is the most
// recent verdict (nil if nothing was validated yet); Err is set when the previous
// attempt or its validation failed outright.
type Feedback[V any] struct {
	Attempt int
	Verdict *V
	Err     error
}

// Exhausted is handed to the fallback when every attempt failed. Last is the most
// recent attempt value; Checked is the value Verdict was produced for.
type Exhausted[T, V any] struct {
	Last    *T
	Checked *T
	Verdict *V
	Err     error
}

// Result is the terminal outcome of a loop.
type Result[T, V any] struct {
	Value    T
	Verdict  V
	Status   Status
	Attempts int
}

// Loop is a bounded attempt/validate/retry state machine. Attempt and Validate
// errors count as failed attempts unless Fatal says otherwise; context errors are
// always fatal. Iterations are strictly sequential.
type Loop[T, V any] struct {
	Name       string
	MaxRetries int

	Attempt  func(ctx context.Context, fb *Feedback[V]) (T, error)
	Validate func(ctx context.Context, v T) (V, error)
	Accept   func(verdict V) bool
	Fallback func(ex Exhausted[T, V]) (T, V, Status, error)
	Fatal    func(err error) bool

	Logger zerolog.Logger
	// OnTransition, if set, observes every state change.
	OnTransition func(s State, attempt int)
}

// ClampRetries bounds n to [0, MaxRetriesCap].
func ClampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxRetriesCap {
		return MaxRetriesCap
	}
	return n
}

// Run executes the loop until a verdict is accepted or attempts run out.
func (l *Loop[T, V]) Run(ctx context.Context) (Result[T, V], error) {
	total := ClampRetries(l.MaxRetries) + 1
	log := l.Logger.With().Str("loop", l.Name).Logger()

	var (
		fb      *Feedback[V]
		ex      Exhausted[T, V]
		attempt int
	)
	for attempt = 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result[T, V]{}, err
		}
		l.transition(log, Attempting, attempt)
		val, err := l.Attempt(ctx, fb)
		if err != nil {
			if l.fatal(ctx, err) {
				return Result[T, V]{}, err
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("attempt failed")
			ex.Err = err
			fb = &Feedback[V]{Attempt: attempt, Verdict: ex.Verdict, Err: err}
			if attempt < total {
				l.transition(log, Retrying, attempt)
			}
			continue
		}
		ex.Last = &val

		l.transition(log, Validating, attempt)
		verdict, err := l.Validate(ctx, val)
		if err != nil {
			if l.fatal(ctx, err) {
				return Result[T, V]{}, err
			}
			log.Debug().Err(err).Int("attempt", attempt).Msg("validation failed")
			ex.Err = err
			fb = &Feedback[V]{Attempt: attempt, Verdict: ex.Verdict, Err: err}
			if attempt < total {
				l.transition(log, Retrying, attempt)
			}
			continue
		}
		ex.Checked = &val
		ex.Verdict = &verdict
		ex.Err = nil

		if l.Accept(verdict) {
			l.transition(log, Succeeded, attempt)
			return Result[T, V]{Value: val, Verdict: verdict, Status: Verified, Attempts: attempt}, nil
		}
		fb = &Feedback[V]{Attempt: attempt, Verdict: &verdict}
		if attempt < total {
			l.transition(log, Retrying, attempt)
		}
	}

	l.transition(log, ExhaustedFallback, total)
	value, verdict, status, err := l.Fallback(ex)
	if err != nil {
		return Result[T, V]{}, err
	}
	log.Warn().Int("attempts", total).Stringer("status", status).Msg("retries exhausted")
	return Result[T, V]{Value: value, Verdict: verdict, Status: status, Attempts: total}, nil
}

func (l *Loop[T, V]) fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	return l.Fatal != nil && l.Fatal(err)
}

func (l *Loop[T, V]) transition(log zerolog.Logger, s State, attempt int) {
	log.Debug().Stringer("state", s).Int("attempt", attempt).Msg("retry loop")
	if l.OnTransition != nil {
		l.OnTransition(s, attempt)
	}
}
