package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		"verbose": DEBUG,
		"quiet":   WARN,
		"warn":    WARN,
		"error":   ERROR,
		"normal":  INFO,
		"":        INFO,
	}
	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLogger_Variants(t *testing.T) {
	logger, err := NewLogger(LogConfig{})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if _, ok := logger.(*NoOpLogger); !ok {
		t.Errorf("Expected NoOpLogger, got %T", logger)
	}

	logger, err = NewLogger(LogConfig{EnableConsole: true})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if _, ok := logger.(*ConsoleLogger); !ok {
		t.Errorf("Expected ConsoleLogger, got %T", logger)
	}

	logPath := filepath.Join(t.TempDir(), "ingest.log")
	logger, err = NewLogger(LogConfig{EnableConsole: true, OutputFile: logPath})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if _, ok := logger.(*MultiLogger); !ok {
		t.Errorf("Expected MultiLogger, got %T", logger)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestDebugTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	console := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: DEBUG})
	transport := &DebugTransport{Logger: console}

	resp, err := (&http.Client{Transport: transport}).Get(srv.URL + "/drive/v3/files")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, "path=/drive/v3/files") || !strings.Contains(out, "status=418") {
		t.Errorf("Unexpected transport log: %q", out)
	}
}

func TestNewDebugLoggerWithTransport(t *testing.T) {
	_, transport, err := NewDebugLoggerWithTransport(LogConfig{EnableConsole: true})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if transport != nil {
		t.Error("Expected no transport without EnableDebug")
	}

	logger, transport, err := NewDebugLoggerWithTransport(LogConfig{EnableConsole: true, EnableDebug: true, Level: DEBUG})
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if transport == nil || transport.Logger != logger {
		t.Error("Expected transport bound to the returned logger")
	}
}
