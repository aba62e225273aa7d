package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetLevel(slog.LevelInfo)

	Info("graph generated", "nodes", 16, "name", "fat tree")

	line := buf.String()
	if !strings.HasPrefix(line, "[INFO]  ") {
		t.Errorf("line should start with level, got %q", line)
	}
	if !strings.Contains(line, "graph generated | nodes=16 name=\"fat tree\"") {
		t.Errorf("unexpected format: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	SetLevel(slog.LevelWarn)
	defer SetLevel(slog.LevelInfo)

	Info("hidden")
	Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "[WARN]  ") {
		t.Error("warn message missing")
	}
}

func TestComponentAndRunID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetLevel(slog.LevelInfo)

	New("topology").Info("built", "sizes", []int{7, 2})
	if !strings.Contains(buf.String(), " topology: built | sizes=7,2\n") {
		t.Errorf("component prefix missing: %q", buf.String())
	}

	buf.Reset()
	ctx := WithRunID(context.Background(), "0123456789abcdef")
	InfoContext(ctx, "started")
	if !strings.Contains(buf.String(), "run=01234567") {
		t.Errorf("shortened run id missing: %q", buf.String())
	}
	if GetRunID(ctx) != "0123456789abcdef" {
		t.Errorf("GetRunID() = %q", GetRunID(ctx))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCompactHandlerGroupsAndTrace(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: LevelTrace})
	log := slog.New(h).With("component", "lp").WithGroup("flow").With("id", 3)

	log.Log(context.Background(), LevelTrace, "constraint", "node", 5, "name", "")
	line := buf.String()
	if !strings.HasPrefix(line, "[TRACE] ") {
		t.Errorf("trace label missing: %q", line)
	}
	if !strings.Contains(line, "lp: constraint | flow.id=3 flow.node=5 flow.name=\"\"\n") {
		t.Errorf("unexpected grouped format: %q", line)
	}
}
