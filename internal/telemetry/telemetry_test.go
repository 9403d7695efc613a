package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies that parseLogLevel correctly parses log level
// strings from environment variables, handling case-insensitivity and whitespace.
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"INFO", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"WARN", zap.WarnLevel},
		{"ERROR", zap.ErrorLevel},
		{"debug", zap.DebugLevel},
		{"  warn  ", zap.WarnLevel},
		{"invalid", zap.InfoLevel},
	}
	for _, tt := range tests {
		level := parseLogLevel(tt.env)
		if got := level.Level(); got != tt.expect {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.env, got, tt.expect)
		}
	}
}

// TestNewLogger verifies that NewLogger builds a usable logger and honors
// COVMARK_LOG_LEVEL.
func TestNewLogger(t *testing.T) {
	t.Setenv("COVMARK_LOG_LEVEL", "debug")
	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("logger does not enable debug level with COVMARK_LOG_LEVEL=debug")
	}
}

// TestTrace_NoLogger verifies that trace helpers are safe no-ops when no
// logger is installed.
func TestTrace_NoLogger(t *testing.T) {
	SetLogger(nil)
	TraceHit("m")
	TraceGuardOpened("id", "m", "at least 1 hit")
	TraceGuardClosed("id", "m", 1, OutcomePass)
}

// TestTrace_Logging verifies that guard events reach the installed logger
// with the expected fields.
func TestTrace_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	TraceGuardOpened("abc", "branch", "at least 1 hit")
	TraceHit("branch")
	TraceGuardClosed("abc", "branch", 1, OutcomePass)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Message != "guard opened" {
		t.Errorf("entries[0].Message = %q, want %q", entries[0].Message, "guard opened")
	}
	fields := entries[2].ContextMap()
	if fields["mark"] != "branch" {
		t.Errorf("closed mark = %v, want %q", fields["mark"], "branch")
	}
	if fields["hits"] != int64(1) {
		t.Errorf("closed hits = %v, want 1", fields["hits"])
	}
}

// TestMetricsHandler verifies that the metrics endpoint serves the covmark
// counters in prometheus exposition format.
func TestMetricsHandler(t *testing.T) {
	MarkHitsTotal.WithLabelValues("served").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "covmarkHitsTotal") || !strings.Contains(body, "covmarkGuardsOpen") {
		t.Errorf("metrics body missing covmark series:\n%s", body)
	}
}
