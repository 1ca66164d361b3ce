package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, "warn")
	l.Info("hidden")
	l.Warn("shown", "agent_id", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record not filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "agent_id=3") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("logger not stored in context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger for empty context")
	}
}
