package logger

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// TestLogger captures every message for later assertions. It is safe for
// concurrent use so worker goroutines can share it.
type TestLogger struct {
	*scopedLogger
}

type captureSink struct {
	mu       sync.Mutex
	messages []LogMessage
}

// scopedLogger carries accumulated fields and an error on top of a shared sink
type scopedLogger struct {
	sink   *captureSink
	fields map[string]interface{}
	err    error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{scopedLogger: &scopedLogger{sink: &captureSink{}}}
}

// GetMessages returns a copy of all captured messages
func (l *TestLogger) GetMessages() []LogMessage {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	messages := make([]LogMessage, len(l.sink.messages))
	copy(messages, l.sink.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error-level message was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear drops all captured messages
func (l *TestLogger) Clear() {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.messages = nil
}

// String renders captured messages one per line
func (l *TestLogger) String() string {
	var b strings.Builder
	for _, msg := range l.GetMessages() {
		b.WriteString("[" + msg.Level + "] " + msg.Message)
		if msg.Error != nil {
			b.WriteString(" error=" + msg.Error.Error())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *scopedLogger) log(level, msg string, extra map[string]interface{}) {
	s.sink.mu.Lock()
	defer s.sink.mu.Unlock()

	s.sink.messages = append(s.sink.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  s.merge(extra),
		Error:   s.err,
	})
}

func (s *scopedLogger) merge(extra map[string]interface{}) map[string]interface{} {
	if len(s.fields) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]interface{}, len(s.fields)+len(extra))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func (s *scopedLogger) Debug(msg string) { s.log("DEBUG", msg, nil) }
func (s *scopedLogger) Info(msg string)  { s.log("INFO", msg, nil) }
func (s *scopedLogger) Warn(msg string)  { s.log("WARN", msg, nil) }
func (s *scopedLogger) Error(msg string) { s.log("ERROR", msg, nil) }
func (s *scopedLogger) Fatal(msg string) { s.log("FATAL", msg, nil) }

func (s *scopedLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	s.log("DEBUG", msg, fields)
}

func (s *scopedLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	s.log("INFO", msg, fields)
}

func (s *scopedLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	s.log("WARN", msg, fields)
}

func (s *scopedLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	s.log("ERROR", msg, fields)
}

func (s *scopedLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	s.log("FATAL", msg, fields)
}

func (s *scopedLogger) WithField(key string, value interface{}) Logger {
	return s.WithFields(map[string]interface{}{key: value})
}

func (s *scopedLogger) WithFields(fields map[string]interface{}) Logger {
	return &scopedLogger{sink: s.sink, fields: s.merge(fields), err: s.err}
}

func (s *scopedLogger) WithError(err error) Logger {
	return &scopedLogger{sink: s.sink, fields: s.fields, err: err}
}

func (s *scopedLogger) WithContext(ctx context.Context) Logger {
	return s
}

func (s *scopedLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
