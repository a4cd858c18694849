package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestShortCaller(t *testing.T) {
	got := shortCaller(0, "/src/internal/review/service.go", 42)
	if got != "service.go:42                " {
		t.Errorf("shortCaller() = %q", got)
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)
	logger.Info().Int("ply", 7).Msg("explained")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if line["message"] != "explained" || line["ply"] != float64(7) || line["level"] != "info" {
		t.Errorf("log line = %v", line)
	}
}
