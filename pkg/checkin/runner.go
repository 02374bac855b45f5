package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"walletcheckin/internal/workerpool"
	"walletcheckin/pkg/backend"
	"walletcheckin/pkg/config"
	errs "walletcheckin/pkg/errors"
	"walletcheckin/pkg/logger"
	"walletcheckin/pkg/retry"
	"walletcheckin/pkg/source"
)

// Step names reported in results, logs and metrics
const (
	StepLogin   = "login"
	StepCheckIn = "check-in"
)

// ErrInterrupted is returned when the context ends while a batch is running.
// The checkpoint is left at the previous batch boundary.
var ErrInterrupted = errors.New("job interrupted")

// Options holds the knobs of a job
type Options struct {
	SourcePath       string
	AddressPrefix    string
	BatchSize        int
	ConcurrencyLimit int
	InterCallDelay   time.Duration
	InterBatchDelay  time.Duration
	MaxAttempts      int
	Backoff          retry.BackoffStrategy
	PointsPath       string
	StrictCheckpoint bool
}

// OptionsFromConfig maps the configuration sections onto job options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SourcePath:       cfg.Source.Path,
		AddressPrefix:    cfg.Source.Prefix,
		BatchSize:        cfg.Batch.Size,
		ConcurrencyLimit: cfg.Batch.Concurrency,
		InterCallDelay:   cfg.Batch.InterCallDelay,
		InterBatchDelay:  cfg.Batch.InterBatchDelay,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		Backoff:          retry.FromConfig(cfg.Retry),
		PointsPath:       cfg.Backend.PointsPath,
		StrictCheckpoint: cfg.Checkpoint.Strict,
	}
}

// Result is the outcome of one address in one run
type Result struct {
	Address  string          `json:"address"`
	Position int             `json:"position"`
	Success  bool            `json:"success"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    string          `json:"error,omitempty"`
	Step     string          `json:"step,omitempty"`
	Duration time.Duration   `json:"-"`
}

// Summary is the in-memory tally of a run
type Summary struct {
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	StartIndex  int           `json:"startIndex"`
	Total       int           `json:"total"`
	Batches     int           `json:"batches"`
	Elapsed     time.Duration `json:"elapsed"`
	NothingToDo bool          `json:"nothingToDo,omitempty"`
	ArchivePath string        `json:"archivePath,omitempty"`
	Results     []Result      `json:"-"`
}

// Batch is a half-open index range [Start, End) of the address list
type Batch struct {
	Number int
	Start  int
	End    int
}

// Len returns the number of addresses in the batch
func (b Batch) Len() int {
	return b.End - b.Start
}

// Partition splits [start, total) into consecutive batches of size. The last
// batch may be shorter.
func Partition(total, start, size int) []Batch {
	if size < 1 {
		size = 1
	}
	if start < 0 {
		start = 0
	}

	var batches []Batch
	for s := start; s < total; s += size {
		end := s + size
		if end > total {
			end = total
		}
		batches = append(batches, Batch{Number: len(batches) + 1, Start: s, End: end})
	}
	return batches
}

type job struct {
	position int
	address  string
}

// Runner executes check-in jobs
type Runner struct {
	opts     Options
	remote   Remote
	store    CheckpointStore
	recorder Recorder
	progress Progress
	logger   logger.Logger
	total    int
}

// New creates a runner. Zero-valued options fall back to single-item
// batches, one worker and one attempt.
func New(opts Options, remote Remote, store CheckpointStore) *Runner {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.ConcurrencyLimit < 1 {
		opts.ConcurrencyLimit = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = &retry.ConstantBackoff{}
	}
	if opts.AddressPrefix == "" {
		opts.AddressPrefix = source.DefaultPrefix
	}

	return &Runner{
		opts:     opts,
		remote:   remote,
		store:    store,
		recorder: nopRecorder{},
		progress: nopProgress{},
		logger:   logger.GetLogger(),
	}
}

// SetRecorder installs the observability sink
func (r *Runner) SetRecorder(rec Recorder) {
	if rec == nil {
		rec = nopRecorder{}
	}
	r.recorder = rec
}

// SetProgress installs the progress display
func (r *Runner) SetProgress(p Progress) {
	if p == nil {
		p = nopProgress{}
	}
	r.progress = p
}

// SetLogger sets the runner's logger
func (r *Runner) SetLogger(l logger.Logger) {
	r.logger = l
}

// Run processes every address after the checkpoint and returns the tally.
// An empty or unreadable source is a configuration error. Cancelling ctx
// stops the job before the running batch is committed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	log := r.logger.WithField("run_id", uuid.NewString())

	items, err := source.Load(r.opts.SourcePath, r.opts.AddressPrefix)
	if err != nil {
		log.WithError(err).Error("Cannot load address list")
		return Summary{}, err
	}

	cp, err := r.store.Load()
	if err != nil {
		log.WithError(err).Error("Cannot read checkpoint")
		return Summary{}, err
	}

	r.total = len(items)
	startIndex := cp.NextIndex()
	summary := Summary{StartIndex: startIndex, Total: len(items)}

	if startIndex >= len(items) {
		log.InfoWithFields("Nothing to do", map[string]interface{}{
			"addresses":   len(items),
			"start_index": startIndex,
			"checkpoint":  r.store.Path(),
		})
		summary.NothingToDo = true
		summary.Elapsed = time.Since(started)
		r.progress.NothingToDo(len(items), startIndex)
		return summary, nil
	}

	batches := Partition(len(items), startIndex, r.opts.BatchSize)
	summary.Batches = len(batches)

	logger.LogComponentStart(log, "runner", map[string]interface{}{
		"addresses":    len(items),
		"start_index":  startIndex,
		"batches":      len(batches),
		"batch_size":   r.opts.BatchSize,
		"concurrency":  r.opts.ConcurrencyLimit,
		"max_attempts": r.opts.MaxAttempts,
	})
	r.progress.JobStarted(len(items), startIndex, len(batches))

	pool := workerpool.New(r.opts.ConcurrencyLimit, func(ctx context.Context, j job) Result {
		return r.ProcessItem(ctx, j.position, j.address)
	}, log)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return r.interrupted(log, summary, started, batch, err)
		}

		jobs := make([]job, 0, batch.Len())
		for idx := batch.Start; idx < batch.End; idx++ {
			jobs = append(jobs, job{position: idx, address: items[idx]})
		}

		results := pool.Run(ctx, jobs)
		if err := ctx.Err(); err != nil {
			return r.interrupted(log, summary, started, batch, err)
		}

		sort.Slice(results, func(a, b int) bool { return results[a].Position < results[b].Position })
		succeeded, failed := 0, 0
		for _, res := range results {
			if res.Success {
				succeeded++
			} else {
				failed++
			}
		}
		summary.Successful += succeeded
		summary.Failed += failed
		summary.Results = append(summary.Results, results...)

		lastIndex := batch.End - 1
		if _, err := r.store.Record(lastIndex, r.opts.SourcePath, len(items)); err != nil {
			if r.opts.StrictCheckpoint {
				log.WithError(err).Error("Checkpoint write failed, aborting")
				summary.Elapsed = time.Since(started)
				return summary, err
			}
			log.WithError(err).WarnWithFields("Checkpoint write failed, continuing", map[string]interface{}{
				"last_index": lastIndex,
			})
		} else {
			r.recorder.RecordCheckpoint(lastIndex)
		}

		r.recorder.RecordBatch(succeeded, failed)
		logger.LogBatch(log, batch.Number, len(batches), batch.Len(), succeeded, failed, lastIndex)
		r.progress.BatchFinished(batch.Number, len(batches), succeeded, failed, lastIndex)

		if i < len(batches)-1 {
			if err := retry.Wait(ctx, r.opts.InterBatchDelay); err != nil {
				summary.Elapsed = time.Since(started)
				return summary, fmt.Errorf("%w after batch %d: %w", ErrInterrupted, batch.Number, err)
			}
		}
	}

	archived, err := r.store.Archive()
	if err != nil {
		if r.opts.StrictCheckpoint {
			summary.Elapsed = time.Since(started)
			return summary, err
		}
		log.WithError(err).Warn("Checkpoint archive failed")
	}
	summary.ArchivePath = archived
	summary.Elapsed = time.Since(started)

	logger.LogComponentStop(log, "runner", "completed")
	log.InfoWithFields("Job finished", map[string]interface{}{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"elapsed":    summary.Elapsed,
	})
	r.progress.Finished(summary.Successful, summary.Failed, summary.Elapsed)

	return summary, nil
}

func (r *Runner) interrupted(log logger.Logger, summary Summary, started time.Time, batch Batch, cause error) (Summary, error) {
	log.WarnWithFields("Job interrupted, batch not committed", map[string]interface{}{
		"batch":       batch.Number,
		"batch_start": batch.Start,
		"checkpoint":  r.store.Path(),
	})
	summary.Elapsed = time.Since(started)
	return summary, fmt.Errorf("%w during batch %d: %w", ErrInterrupted, batch.Number, cause)
}

// ProcessItem logs address in, waits the inter-call delay and checks it in.
// Each step has its own retry budget. The first failing step ends the item.
func (r *Runner) ProcessItem(ctx context.Context, position int, address string) Result {
	started := time.Now()
	res := Result{Address: address, Position: position}
	r.progress.ItemStarted(position, r.total, address)

	finish := func() Result {
		res.Duration = time.Since(started)
		r.recorder.RecordItem(res.Success)
		r.progress.ItemFinished(position, r.total, address, res.Success, res.Error)
		return res
	}

	if _, err := r.step(ctx, StepLogin, address, r.remote.Login); err != nil {
		res.Step = StepLogin
		res.Error = err.Error()
		return finish()
	}

	if err := retry.Wait(ctx, r.opts.InterCallDelay); err != nil {
		res.Step = StepCheckIn
		res.Error = err.Error()
		return finish()
	}

	out, err := r.step(ctx, StepCheckIn, address, r.remote.CheckIn)
	if err != nil {
		res.Step = StepCheckIn
		res.Error = err.Error()
		return finish()
	}

	res.Success = true
	if out != nil {
		res.Payload = out.Value
	}
	return finish()
}

type remoteCall func(ctx context.Context, address string) (*backend.Result, error)

func (r *Runner) step(ctx context.Context, name, address string, call remoteCall) (*backend.Result, error) {
	started := time.Now()
	attempts := 0

	out, err := retry.DoWithResult(func() (*backend.Result, error) {
		attempts++
		return call(ctx, address)
	}, &retry.Config{
		MaxAttempts: r.opts.MaxAttempts,
		Backoff:     r.opts.Backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      r.logger.WithFields(map[string]interface{}{"step": name, "address": address}),
	})
	duration := time.Since(started)

	r.recorder.RecordStep(name, err == nil, duration)
	logger.LogStep(r.logger, name, address, attempts, err, duration)

	if err == nil && out != nil {
		if points, ok := out.Points(r.opts.PointsPath); ok {
			r.recorder.RecordPoints(address, points)
		}
	}
	if err != nil && ctx.Err() == nil && !errs.IsRetryable(errs.TypeOf(err)) {
		r.logger.WithError(err).WarnWithFields("Permanent failure", map[string]interface{}{
			"step":    name,
			"address": address,
		})
	}
	return out, err
}
