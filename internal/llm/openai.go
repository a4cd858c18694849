package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/responses"

// OpenAI calls the OpenAI Responses API with strict JSON-schema output.
type OpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

// NewOpenAI builds a provider with a long header timeout for slow first tokens.
func NewOpenAI(key, model string) *OpenAI {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &OpenAI{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: defaultOpenAIURL,
		httpc:   &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client.
func (o *OpenAI) WithHTTPClient(c *http.Client) *OpenAI {
	if c != nil {
		o.httpc = c
	}
	return o
}

func (o *OpenAI) Name() string { return "openai/" + o.Model }

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is empty", ErrProviderHard)
	}

	var input []any
	if req.System != "" {
		input = append(input, message("system", req.System))
	}
	input = append(input, message("user", req.Prompt))
	body := map[string]any{
		"model":       o.Model,
		"input":       input,
		"temperature": req.Temperature,
	}
	if req.Schema != nil {
		name := req.Name
		if name == "" {
			name = "response"
		}
		body["text"] = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   name,
				"strict": true,
				"schema": req.Schema.JSON(),
			},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai %s: encode request: %w", req.Name, err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", hard(err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.httpc.Do(hreq)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", err
		}
		return "", transient(fmt.Errorf("openai %s: %w", req.Name, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transient(fmt.Errorf("openai %s: read body: %w", req.Name, err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, fmt.Errorf("openai %s %d: %s", req.Name, resp.StatusCode, truncateBytes(raw, 512)))
	}

	out := strings.TrimSpace(extractResponsesText(raw))
	if out == "" {
		return "", malformed("openai %s: empty output; body=%s", req.Name, truncateBytes(raw, 1024))
	}
	return out, nil
}

func message(role, text string) map[string]any {
	return map[string]any{
		"role": role,
		"content": []any{
			map[string]any{"type": "input_text", "text": text},
		},
	}
}

func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return rateLimited(err)
	case code == http.StatusRequestTimeout || code >= 500:
		return transient(err)
	default:
		return hard(err)
	}
}

// extractResponsesText prefers `output_text`, otherwise concatenates text
// segments found in output[i].content[j].
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
