package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var output map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return output
}

func TestNewLogger_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level to be info, got %s", cfg.Level)
	}
	if cfg.Component != "cli" {
		t.Errorf("expected default component to be 'cli', got %s", cfg.Component)
	}
	if cfg.JSONFormat {
		t.Error("expected default JSONFormat to be false")
	}
}

func TestNewLogger_NilConfig(t *testing.T) {
	if NewLogger(nil) == nil {
		t.Error("expected non-nil logger with nil config")
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{
		Level:      LevelDebug,
		Component:  "server",
		JSONFormat: true,
		Output:     buf,
	})
	log.Info("analysis complete", F("report_id", "abc"))

	output := decodeLine(t, buf)
	if output["message"] != "analysis complete" {
		t.Errorf("expected message 'analysis complete', got %v", output["message"])
	}
	if output["component"] != "server" {
		t.Errorf("expected component 'server', got %v", output["component"])
	}
	if output["report_id"] != "abc" {
		t.Errorf("expected report_id 'abc', got %v", output["report_id"])
	}
	if _, ok := output["time"]; !ok {
		t.Error("expected timestamp field 'time' in output")
	}
	if output["level"] != "info" {
		t.Errorf("expected level 'info', got %v", output["level"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log.With(F("stage", "embed"), F("chunks", 12)).Info("embedding chunks")

	output := decodeLine(t, buf)
	if output["stage"] != "embed" {
		t.Errorf("expected stage 'embed', got %v", output["stage"])
	}
	if output["chunks"] != float64(12) {
		t.Errorf("expected chunks 12, got %v", output["chunks"])
	}
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, RequestIDKey, "req-456")

	log.WithContext(ctx).Info("traced request")

	output := decodeLine(t, buf)
	if output["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected trace_id %v", output["trace_id"])
	}
	if output["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("unexpected span_id %v", output["span_id"])
	}
	if output["request_id"] != "req-456" {
		t.Errorf("expected request_id 'req-456', got %v", output["request_id"])
	}
}

func TestLogger_WithContext_EmptyContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log.WithContext(context.Background()).Info("no trace")

	output := decodeLine(t, buf)
	if _, ok := output["trace_id"]; ok {
		t.Error("expected no trace_id for empty context")
	}
	if _, ok := output["request_id"]; ok {
		t.Error("expected no request_id for empty context")
	}
}

func TestLogger_FieldTypes(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf})

	log.Info("types",
		F("str", "s"),
		F("int", 1),
		F("int64", int64(2)),
		F("float", 0.72),
		F("bool", true),
		F("dur", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	output := decodeLine(t, buf)
	if output["str"] != "s" || output["int"] != float64(1) || output["int64"] != float64(2) {
		t.Errorf("scalar fields mismatch: %v", output)
	}
	if output["float"] != 0.72 || output["bool"] != true {
		t.Errorf("float/bool fields mismatch: %v", output)
	}
	if output["dur"] != float64(1500) {
		t.Errorf("expected duration in ms, got %v", output["dur"])
	}
	if output["error"] != "boom" {
		t.Errorf("error field mismatch: %v", output["error"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelWarn, JSONFormat: true, Output: buf})

	log.Debug("debug - should not appear")
	log.Info("info - should not appear")
	log.Warn("warn - should appear")
	log.Error("error - should appear")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "warn - should appear") {
		t.Errorf("expected first line to be warn, got: %s", lines[0])
	}
	if !strings.Contains(lines[1], "error - should appear") {
		t.Errorf("expected second line to be error, got: %s", lines[1])
	}
}

func TestLogger_ConsoleFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelInfo, Output: buf, NoColor: true})

	log.Info("console output test", F("agenda_items", 3))

	output := buf.String()
	if !strings.Contains(output, "console output test") {
		t.Errorf("console output should contain message: %s", output)
	}
	if !strings.Contains(output, "INF") {
		t.Errorf("console output should contain level indicator: %s", output)
	}
	if !strings.Contains(output, "agenda_items=3") {
		t.Errorf("console output should contain field: %s", output)
	}
}

func TestGlobal_NotInitialized(t *testing.T) {
	oldGlobal := global
	global = nil
	defer func() { global = oldGlobal }()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when global not initialized")
		}
	}()

	Global()
}

func TestSetGlobal_And_Global(t *testing.T) {
	oldGlobal := global
	defer func() { global = oldGlobal }()

	buf := &bytes.Buffer{}
	SetGlobal(NewLogger(&Config{Level: LevelInfo, JSONFormat: true, Output: buf}))
	Global().Info("global logger test")

	if !strings.Contains(buf.String(), "global logger test") {
		t.Errorf("global logger should have logged: %s", buf.String())
	}
}

func TestMustGlobal_InitializesDefaults(t *testing.T) {
	oldGlobal := global
	global = nil
	defer func() { global = oldGlobal }()

	if MustGlobal() == nil {
		t.Error("MustGlobal should return non-nil logger")
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.With(F("a", 1)).WithContext(context.Background()).Error("ignored")
	if lvl := log.Zerolog().GetLevel(); lvl != zerolog.Disabled {
		t.Errorf("expected nop zerolog to be disabled, got %s", lvl)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"INFO", "info"},
		{" warn ", "warn"},
		{"error", "error"},
		{"invalid", "info"},
		{"", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input).String(); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}
