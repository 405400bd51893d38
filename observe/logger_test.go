package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func parseLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug msg")
	logger.Info(ctx, "info msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")

	entries := parseLogLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "cache swept",
		F("removed", 3),
		F("category", "visualization"),
	)

	entries := parseLogLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "cache swept" {
		t.Errorf("msg = %v, want 'cache swept'", entries[0]["msg"])
	}
	if entries[0]["removed"] != float64(3) {
		t.Errorf("removed = %v, want 3", entries[0]["removed"])
	}
	if entries[0]["category"] != "visualization" {
		t.Errorf("category = %v, want visualization", entries[0]["category"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "quiz submitted",
		F("quiz_id", "q1"),
		F("answers", map[string]any{"question_1": "A"}),
		F("api_key", "sk-secret"),
	)

	entries := parseLogLines(t, &buf)
	if entries[0]["answers"] != "[REDACTED]" {
		t.Errorf("answers = %v, want [REDACTED]", entries[0]["answers"])
	}
	if entries[0]["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", entries[0]["api_key"])
	}
	if entries[0]["quiz_id"] != "q1" {
		t.Errorf("quiz_id = %v, want q1", entries[0]["quiz_id"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.With(F("component", "dispatch"), F("request_id", "01ABC"))

	scoped.Info(context.Background(), "cache hit")
	base.Info(context.Background(), "plain")

	entries := parseLogLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["component"] != "dispatch" || entries[0]["request_id"] != "01ABC" {
		t.Errorf("scoped entry missing base fields: %v", entries[0])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Error("parent logger should not carry child fields")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
