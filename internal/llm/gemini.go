package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Gemini calls a Google Gemini model through the generative-ai SDK.
type Gemini struct {
	model  string
	client *genai.Client
}

// NewGemini opens a client for model. Close releases it.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrProviderHard)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{model: strings.TrimSpace(model), client: cl}, nil
}

func (g *Gemini) Close() error { return g.client.Close() }

func (g *Gemini) Name() string { return "gemini/" + g.model }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	m := g.client.GenerativeModel(g.model)
	if m == nil {
		return "", hard(fmt.Errorf("gemini: model %q is nil", g.model))
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(req.Temperature),
	}
	if req.Schema != nil {
		m.GenerationConfig.ResponseMIMEType = "application/json"
		m.GenerationConfig.ResponseSchema = req.Schema.Genai()
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", classifyGemini(err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", malformed("gemini %s: empty response", req.Name)
	}
	return txt, nil
}

func classifyGemini(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return rateLimited(err)
		case gerr.Code >= 500:
			return transient(err)
		case gerr.Code == http.StatusUnauthorized, gerr.Code == http.StatusForbidden,
			gerr.Code == http.StatusBadRequest, gerr.Code == http.StatusNotFound:
			return hard(err)
		}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.ResourceExhausted:
			return rateLimited(err)
		case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
			return transient(err)
		case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument, codes.NotFound:
			return hard(err)
		}
	}
	return transient(err)
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
