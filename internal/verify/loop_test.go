package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/TejasGadi/chess-cognify-ai-sub000/internal/llm"
)

type countingLoop struct {
	attempts int
	fallback int
	states   []State
}

func (c *countingLoop) loop(maxRetries int, passOn int, attemptErr func(n int) error) *Loop[int, bool] {
	return &Loop[int, bool]{
		Name:       "test",
		MaxRetries: maxRetries,
		Logger:     zerolog.Nop(),
		Attempt: func(ctx context.Context, fb *Feedback[bool]) (int, error) {
			c.attempts++
			if attemptErr != nil {
				if err := attemptErr(c.attempts); err != nil {
					return 0, err
				}
			}
			return c.attempts, nil
		},
		Validate: func(ctx context.Context, v int) (bool, error) { return v == passOn, nil },
		Accept:   func(ok bool) bool { return ok },
		Fallback: func(ex Exhausted[int, bool]) (int, bool, Status, error) {
			c.fallback++
			return -1, false, Fallback, nil
		},
		Fatal: func(err error) bool { return errors.Is(err, llm.ErrProviderHard) },
		OnTransition: func(s State, attempt int) {
			c.states = append(c.states, s)
		},
	}
}

func TestLoop_AlwaysFailingTerminates(t *testing.T) {
	c := &countingLoop{}
	res, err := c.loop(2, 0, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.attempts != 3 || c.fallback != 1 {
		t.Errorf("attempts = %d fallback = %d, want 3 and 1", c.attempts, c.fallback)
	}
	if res.Status != Fallback || res.Value != -1 || res.Attempts != 3 {
		t.Errorf("Run() = %+v", res)
	}
	want := []State{
		Attempting, Validating, Retrying,
		Attempting, Validating, Retrying,
		Attempting, Validating, ExhaustedFallback,
	}
	if diff := cmp.Diff(want, c.states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestLoop_PassOnSecondAttempt(t *testing.T) {
	c := &countingLoop{}
	res, err := c.loop(2, 2, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if c.attempts != 2 || res.Status != Verified || res.Value != 2 || res.Attempts != 2 {
		t.Errorf("attempts = %d, result = %+v", c.attempts, res)
	}
	if c.states[len(c.states)-1] != Succeeded {
		t.Errorf("last state = %v, want succeeded", c.states[len(c.states)-1])
	}
}

func TestLoop_ErrorOnFinalAttemptFallsBack(t *testing.T) {
	c := &countingLoop{}
	boom := errors.New("model timeout")
	res, err := c.loop(2, 0, func(int) error { return boom }).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want fallback", err)
	}
	if res.Status != Fallback || c.attempts != 3 {
		t.Errorf("attempts = %d, result = %+v", c.attempts, res)
	}
}

func TestLoop_ErrorThenSuccess(t *testing.T) {
	c := &countingLoop{}
	res, err := c.loop(2, 2, func(n int) error {
		if n == 1 {
			return errors.New("flaky")
		}
		return nil
	}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Verified || c.attempts != 2 {
		t.Errorf("attempts = %d, result = %+v", c.attempts, res)
	}
}

func TestLoop_FatalErrorPropagates(t *testing.T) {
	c := &countingLoop{}
	hard := errors.Join(llm.ErrProviderHard, errors.New("401"))
	_, err := c.loop(2, 0, func(int) error { return hard }).Run(context.Background())
	if !errors.Is(err, llm.ErrProviderHard) {
		t.Fatalf("Run() error = %v, want ErrProviderHard", err)
	}
	if c.attempts != 1 || c.fallback != 0 {
		t.Errorf("attempts = %d fallback = %d, want 1 and 0", c.attempts, c.fallback)
	}
}

func TestLoop_CancelledContext(t *testing.T) {
	c := &countingLoop{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.loop(2, 0, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if c.attempts != 0 {
		t.Errorf("attempts = %d, want 0", c.attempts)
	}
}

func TestLoop_RetryCap(t *testing.T) {
	tests := []struct {
		maxRetries int
		want       int
	}{
		{0, 1},
		{-3, 1},
		{2, 3},
		{MaxRetriesCap, MaxRetriesCap + 1},
		{1000, MaxRetriesCap + 1},
	}
	for _, tt := range tests {
		c := &countingLoop{}
		if _, err := c.loop(tt.maxRetries, 0, nil).Run(context.Background()); err != nil {
			t.Fatal(err)
		}
		if c.attempts != tt.want {
			t.Errorf("MaxRetries %d: attempts = %d, want %d", tt.maxRetries, c.attempts, tt.want)
		}
	}
}
