package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
)

// LoggedEntry is one call captured by RecordingLogger
type LoggedEntry struct {
	Level   logging.LogLevel
	Message string
	Fields  map[string]interface{}
}

// RecordingLogger keeps every log call for assertions
type RecordingLogger struct {
	mu      *sync.Mutex
	entries *[]LoggedEntry
}

// NewRecordingLogger creates an empty recording logger
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{mu: &sync.Mutex{}, entries: &[]LoggedEntry{}}
}

func (l *RecordingLogger) record(level logging.LogLevel, msg string, fields []logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := LoggedEntry{Level: level, Message: msg, Fields: make(map[string]interface{}, len(fields))}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}
	*l.entries = append(*l.entries, entry)
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) {
	l.record(logging.DEBUG, msg, fields)
}
func (l *RecordingLogger) Info(msg string, fields ...logging.Field) {
	l.record(logging.INFO, msg, fields)
}
func (l *RecordingLogger) Warn(msg string, fields ...logging.Field) {
	l.record(logging.WARN, msg, fields)
}
func (l *RecordingLogger) Error(msg string, fields ...logging.Field) {
	l.record(logging.ERROR, msg, fields)
}

func (l *RecordingLogger) WithTraceID(string) logging.Logger          { return l }
func (l *RecordingLogger) WithContext(context.Context) logging.Logger { return l }
func (l *RecordingLogger) SetLevel(logging.LogLevel)                  {}
func (l *RecordingLogger) Close() error                               { return nil }

// Entries returns a copy of everything logged at level
func (l *RecordingLogger) Entries(level logging.LogLevel) []LoggedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LoggedEntry
	for _, e := range *l.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether a message containing substr was logged at level
func (l *RecordingLogger) Contains(level logging.LogLevel, substr string) bool {
	for _, e := range l.Entries(level) {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
