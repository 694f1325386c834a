package logging

import (
	"net/http"
	"time"
)

// LogConfig configures NewLogger
type LogConfig struct {
	Level           LogLevel
	OutputFile      string
	EnableConsole   bool
	EnableDebug     bool
	RedactSensitive bool
	EnableColor     bool
	EnableTimestamp bool
	MaxFileSize     int64
}

// DefaultLogConfig returns the configuration used by job runs
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           INFO,
		EnableConsole:   true,
		RedactSensitive: true,
		EnableTimestamp: true,
		MaxFileSize:     100 * 1024 * 1024,
	}
}

// NewLogger builds a console, file, combined, or no-op logger from config
func NewLogger(config LogConfig) (Logger, error) {
	var loggers []Logger

	if config.EnableConsole {
		loggers = append(loggers, NewConsoleLogger(ConsoleLoggerConfig{
			Level:            config.Level,
			ColorEnabled:     config.EnableColor,
			TimestampEnabled: config.EnableTimestamp,
			RedactSensitive:  config.RedactSensitive,
		}))
	}

	if config.OutputFile != "" {
		fileLogger, err := NewFileLogger(FileLoggerConfig{
			FilePath:    config.OutputFile,
			Level:       config.Level,
			MaxFileSize: config.MaxFileSize,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, fileLogger)
	}

	switch len(loggers) {
	case 0:
		return NewNoOpLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return NewMultiLogger(loggers...), nil
	}
}

// DebugTransport logs every Drive HTTP round trip at DEBUG
type DebugTransport struct {
	Base   http.RoundTripper
	Logger Logger
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	fields := []Field{
		F("method", req.Method),
		F("path", req.URL.Path),
		F("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		t.Logger.Debug("HTTP request failed", append(fields, F("error", err.Error()))...)
		return nil, err
	}
	t.Logger.Debug("HTTP request", append(fields, F("status", resp.StatusCode))...)
	return resp, nil
}

// NewDebugLoggerWithTransport returns a logger and, when EnableDebug is set,
// a transport that traces HTTP calls through it.
func NewDebugLoggerWithTransport(config LogConfig) (Logger, *DebugTransport, error) {
	logger, err := NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if !config.EnableDebug {
		return logger, nil, nil
	}
	return logger, &DebugTransport{Logger: logger}, nil
}
