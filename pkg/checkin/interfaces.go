package checkin

import (
	"context"
	"time"

	"walletcheckin/pkg/backend"
	"walletcheckin/pkg/checkpoint"
)

// Remote is the two-step backend the runner drives for each address
type Remote interface {
	Login(ctx context.Context, address string) (*backend.Result, error)
	CheckIn(ctx context.Context, address string) (*backend.Result, error)
}

// CheckpointStore persists batch-boundary progress
type CheckpointStore interface {
	Load() (*checkpoint.Checkpoint, error)
	Record(lastIndex int, source string, total int) (*checkpoint.Checkpoint, error)
	Archive() (string, error)
	Path() string
}

// Recorder receives observability events. It is never read back.
type Recorder interface {
	RecordStep(step string, success bool, duration time.Duration)
	RecordItem(success bool)
	RecordPoints(address string, points float64)
	RecordBatch(succeeded, failed int)
	RecordCheckpoint(lastIndex int)
}

// Progress renders job progress for a human. Item callbacks arrive from
// worker goroutines concurrently.
type Progress interface {
	JobStarted(total, startIndex, batches int)
	ItemStarted(position, total int, address string)
	ItemFinished(position, total int, address string, success bool, errMsg string)
	BatchFinished(batch, batches, succeeded, failed, lastIndex int)
	NothingToDo(total, startIndex int)
	Finished(successful, failed int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(string, bool, time.Duration) {}
func (nopRecorder) RecordItem(bool)                        {}
func (nopRecorder) RecordPoints(string, float64)           {}
func (nopRecorder) RecordBatch(int, int)                   {}
func (nopRecorder) RecordCheckpoint(int)                   {}

type nopProgress struct{}

func (nopProgress) JobStarted(int, int, int)                    {}
func (nopProgress) ItemStarted(int, int, string)                {}
func (nopProgress) ItemFinished(int, int, string, bool, string) {}
func (nopProgress) BatchFinished(int, int, int, int, int)       {}
func (nopProgress) NothingToDo(int, int)                        {}
func (nopProgress) Finished(int, int, time.Duration)            {}
