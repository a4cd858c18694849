package llm

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// StripCodeFences removes a surrounding ```json ... ``` block.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Decode parses a JSON model response into T and checks its validate tags.
// Any failure is reported as ErrMalformedResponse.
func Decode[T any](raw string) (T, error) {
	var out T
	txt := StripCodeFences(raw)
	if txt == "" {
		return out, malformed("empty response")
	}
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return out, malformed("bad JSON: %v", err)
	}
	if err := validate.Struct(out); err != nil {
		return out, malformed("invalid response structure: %v", err)
	}
	return out, nil
}
