// Package logger provides the structured logging interface used across
// walletcheckin.
//
// It wraps zerolog behind a small Logger interface with support for:
//   - leveled logging (Debug, Info, Warn, Error, Fatal)
//   - structured fields via WithField/WithFields and the *WithFields methods
//   - colored console output for terminals, JSON for log shippers
//   - an optional append-only log file
//   - a process-wide logger reachable through GetLogger
//
// Basic usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//		return err
//	}
//	logger.WithField("run_id", runID).Info("Job starting")
//	logger.WithError(err).Error("Checkpoint write failed")
//
// Tests can use NewNopLogger to silence output, or NewTestLogger to capture
// and assert on messages.
package logger
