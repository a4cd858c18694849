// Package llm issues structured-output requests to language model providers.
package llm

import (
	"context"
	"fmt"
)

// Tier selects between the two model endpoints.
type Tier uint8

const (
	// Fast is the cheap endpoint used for free-text generation.
	Fast Tier = iota
	// Reasoning is the structured-reasoning endpoint used for extraction and audits.
	Reasoning
)

func (t Tier) String() string {
	if t == Reasoning {
		return "reasoning"
	}
	return "fast"
}

// Request is one self-contained model call. Schema, when set, constrains the
// response to JSON of that shape.
type Request struct {
	Name        string
	Tier        Tier
	System      string
	Prompt      string
	Schema      *Schema
	Temperature float32
}

// Provider returns the raw text of a model response or a classified error.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Router dispatches requests to the endpoint for their tier. A missing endpoint
// falls back to the other one.
type Router struct {
	Fast      Provider
	Reasoning Provider
}

func (r Router) Generate(ctx context.Context, req Request) (string, error) {
	p := r.Fast
	if (req.Tier == Reasoning && r.Reasoning != nil) || p == nil {
		p = r.Reasoning
	}
	if p == nil {
		return "", fmt.Errorf("%w: no provider for %s tier", ErrProviderHard, req.Tier)
	}
	return p.Generate(ctx, req)
}
