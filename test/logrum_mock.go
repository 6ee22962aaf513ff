package test

import (
	"fmt"
	"strings"
	"sync"
)

// logEntry is one message captured by MockLogrum.
type logEntry struct {
	level   string
	message string
}

// MockLogrum stands in for the logrus provider and keeps every entry it is
// handed at or below its level.
type MockLogrum struct {
	mu      sync.Mutex
	entries []logEntry
	level   int
}

// NewMockLogrum creates a MockLogrum at the given provider level
// (0 error, 1 info, 2 debug, 3 trace).
func NewMockLogrum(level int) *MockLogrum {
	return &MockLogrum{level: level}
}

func (l *MockLogrum) record(level int, name, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level >= level {
		l.entries = append(l.entries, logEntry{level: name, message: fmt.Sprintf(msg, args...)})
	}
}

func (l *MockLogrum) Error(msg string, args ...interface{}) {
	l.record(0, "ERROR", msg, args...)
}

func (l *MockLogrum) Info(msg string, args ...interface{}) {
	l.record(1, "INFO", msg, args...)
}

func (l *MockLogrum) Debug(msg string, args ...interface{}) {
	l.record(2, "DEBUG", msg, args...)
}

func (l *MockLogrum) Trace(msg string, args ...interface{}) {
	l.record(3, "TRACE", msg, args...)
}

func (l *MockLogrum) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *MockLogrum) GetLevel() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Messages returns the messages recorded at level, oldest first.
func (l *MockLogrum) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.message)
		}
	}
	return out
}

// GetOutput renders every entry as "[LEVEL] message" lines.
func (l *MockLogrum) GetOutput() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sb strings.Builder
	for _, e := range l.entries {
		fmt.Fprintf(&sb, "[%s] %s\n", e.level, e.message)
	}
	return sb.String()
}

func (l *MockLogrum) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
