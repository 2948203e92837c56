package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONFormatEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Format: "json", Writer: &buf})
	logger.Info("frames extracted", "count", 42)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "frames extracted" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["count"] != float64(42) {
		t.Fatalf("unexpected count attr: %v", record["count"])
	}
}

func TestConsoleFormatOnNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: "console", Writer: &buf})
	logger.Debug("probing target")
	if buf.Len() == 0 {
		t.Fatal("expected output at debug level")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "error", Format: "json", Writer: &buf})
	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked past error level: %s", buf.String())
	}
}
