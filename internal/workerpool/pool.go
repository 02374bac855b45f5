// Package workerpool runs jobs on a fixed number of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"walletcheckin/pkg/logger"
)

// ProcessFunc handles one job and returns its result. It must not panic.
type ProcessFunc[J, R any] func(ctx context.Context, job J) R

// Pool feeds jobs to a fixed set of workers. At most numWorkers jobs are
// being processed at any instant; results arrive in completion order.
type Pool[J, R any] struct {
	numWorkers  int
	process     ProcessFunc[J, R]
	jobQueue    chan J
	resultQueue chan R
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	inFlight    atomic.Int32
	logger      logger.Logger
}

// New creates a pool with numWorkers workers (at least one)
func New[J, R any](numWorkers int, process ProcessFunc[J, R], log logger.Logger) *Pool[J, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool[J, R]{
		numWorkers:  numWorkers,
		process:     process,
		jobQueue:    make(chan J, numWorkers*2),
		resultQueue: make(chan R, numWorkers),
		logger:      log,
	}
}

// Start launches the workers. Cancelling ctx makes workers stop picking up
// new jobs; jobs already running see the cancellation through their ctx.
func (p *Pool[J, R]) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the job queue, waits for the workers and closes Results
func (p *Pool[J, R]) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Debug("Worker pool stopped")
}

// Submit queues a job, blocking while the queue is full
func (p *Pool[J, R]) Submit(job J) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel. It is closed by Stop.
func (p *Pool[J, R]) Results() <-chan R {
	return p.resultQueue
}

// InFlight returns the number of jobs being processed right now
func (p *Pool[J, R]) InFlight() int {
	return int(p.inFlight.Load())
}

// Workers returns the configured number of workers
func (p *Pool[J, R]) Workers() int {
	return p.numWorkers
}

func (p *Pool[J, R]) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		p.inFlight.Add(1)
		result := p.process(p.ctx, job)
		p.inFlight.Add(-1)

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// Run processes jobs on a fresh set of workers and returns once every job
// has settled. If ctx is cancelled, Run returns early with the results
// collected so far.
func (p *Pool[J, R]) Run(ctx context.Context, jobs []J) []R {
	batch := New(p.numWorkers, p.process, p.logger)
	batch.Start(ctx)

	go func() {
		defer batch.Stop()
		for _, job := range jobs {
			if err := batch.Submit(job); err != nil {
				return
			}
		}
	}()

	results := make([]R, 0, len(jobs))
	for r := range batch.Results() {
		results = append(results, r)
	}
	return results
}
