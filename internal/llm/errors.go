package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceBusy means transient provider failures outlasted the retry budget.
	ErrServiceBusy = errors.New("model service busy")
	// ErrRateLimited is ErrServiceBusy caused by rate limiting. Errors carrying it
	// also match ErrServiceBusy.
	ErrRateLimited = errors.New("model provider rate limited")
	// ErrProviderHard covers authentication and configuration failures.
	ErrProviderHard = errors.New("model provider rejected request")
	// ErrMalformedResponse means the response did not match the requested shape.
	ErrMalformedResponse = errors.New("malformed model response")
)

// TransientError marks a failure that may succeed when retried.
type TransientError struct {
	RateLimited bool
	Err         error
}

func (e *TransientError) Error() string {
	if e.RateLimited {
		return "rate limited: " + e.Err.Error()
	}
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }

func transient(err error) error { return &TransientError{Err: err} }

func rateLimited(err error) error { return &TransientError{RateLimited: true, Err: err} }

func hard(err error) error { return fmt.Errorf("%w: %w", ErrProviderHard, err) }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// IsTransient reports whether err is worth retrying at the transport level.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// exhausted converts the last transient error into the caller-facing busy class.
func exhausted(name string, attempts int, last error) error {
	var te *TransientError
	if errors.As(last, &te) && te.RateLimited {
		return fmt.Errorf("%s: %w after %d attempts (%w): %v", name, ErrRateLimited, attempts, ErrServiceBusy, last)
	}
	return fmt.Errorf("%s: %w after %d attempts: %v", name, ErrServiceBusy, attempts, last)
}
