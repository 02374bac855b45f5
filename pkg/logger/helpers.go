package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogStep records the outcome of one remote step for one address
func LogStep(l Logger, step, address string, attempt int, err error, duration time.Duration) {
	fields := map[string]interface{}{
		"step":        step,
		"address":     address,
		"duration_ms": duration.Milliseconds(),
	}
	if attempt > 0 {
		fields["attempts"] = attempt
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Step failed", fields)
		return
	}
	l.DebugWithFields("Step succeeded", fields)
}

// LogBatch logs a per-batch summary
func LogBatch(l Logger, batch, batches, size, succeeded, failed, lastIndex int) {
	l.InfoWithFields("Batch committed", map[string]interface{}{
		"batch":      fmt.Sprintf("%d/%d", batch, batches),
		"size":       size,
		"succeeded":  succeeded,
		"failed":     failed,
		"last_index": lastIndex,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	logger := l.WithField("component", component)
	if len(config) > 0 {
		logger = logger.WithFields(config)
	}
	logger.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
