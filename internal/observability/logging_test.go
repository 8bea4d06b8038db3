package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := context.Background()
	logger.Info(ctx, "configured provider", "detail", "api_key=sk1234567890abcdef1234")

	out := buf.String()
	if strings.Contains(out, "sk1234567890abcdef1234") {
		t.Errorf("output should not contain the raw key: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Errorf("output should contain the redaction marker: %s", out)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("below-level messages should be dropped: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf}).
		WithComponent("agent")

	logger.Info(context.Background(), "hello")

	if !strings.Contains(buf.String(), `"component":"agent"`) {
		t.Errorf("component tag missing: %s", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.expected {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

func TestNewMetrics(t *testing.T) {
	// A fresh registry per test avoids duplicate registration.
	m := NewMetrics(newTestRegistry())

	m.LLMRequestCounter.WithLabelValues("anthropic", "success").Inc()
	m.RetryCounter.WithLabelValues("llm_request").Inc()
	m.ObserveCircuitState("anthropic_api", "open")
	m.RiskVerdictCounter.WithLabelValues("command", "forbidden").Inc()
}

func TestObserveCircuitState_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCircuitState("x", "open") // must not panic
}
