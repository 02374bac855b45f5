// Package checkpoint persists how far a check-in job has progressed.
//
// A checkpoint records the index of the last address whose batch fully
// settled. It is rewritten wholesale after every batch, so a reader always
// sees a complete document, and it only ever moves forward. When a job runs
// to the end the file is renamed with a completion timestamp, which makes
// the next run on the same source start from the beginning.
//
// Without an explicit path, checkpoints live in the platform data directory:
//   - Linux: $XDG_DATA_HOME/walletcheckin/checkpoints/ (or ~/.local/share/...)
//   - macOS: ~/Library/Application Support/walletcheckin/checkpoints/
//   - Windows: %APPDATA%/walletcheckin/checkpoints/
package checkpoint
