package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Job is one (symbol, strategy) backtest in a batch.
type Job struct {
	ID      string
	Request Request
}

// JobResult pairs a finished job with its outcome.
type JobResult struct {
	ID       string
	Result   *Result
	Duration time.Duration
}

// WorkerPool runs independent backtest jobs in parallel. Each job gets
// its own simulator and portfolio, so workers share nothing but the
// runner's read-only collaborators.
type WorkerPool struct {
	runner      *Runner
	workerCount int
	jobs        chan Job
	results     chan JobResult
	wg          sync.WaitGroup
}

// NewWorkerPool creates a pool of workerCount workers; zero or negative
// means one per CPU.
func NewWorkerPool(runner *Runner, workerCount, buffer int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{
		runner:      runner,
		workerCount: workerCount,
		jobs:        make(chan Job, buffer),
		results:     make(chan JobResult, buffer),
	}
}

// Start launches the workers. ctx cancels in-flight runs cooperatively.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx)
	}
}

// Submit queues a job, failing when ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals no more jobs, waits for workers to drain and closes the
// result channel.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
	wp.wg.Wait()
	close(wp.results)
}

// Results returns the channel finished jobs arrive on.
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.results
}

func (wp *WorkerPool) worker(ctx context.Context) {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			started := time.Now()
			res := wp.runner.Run(ctx, job.Request)
			select {
			case wp.results <- JobResult{ID: job.ID, Result: res, Duration: time.Since(started)}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// RunBatch is the convenience wrapper: it runs every request through
// the pool and returns results keyed by job ID.
func RunBatch(ctx context.Context, runner *Runner, requests []Request, workers int) map[string]*Result {
	pool := NewWorkerPool(runner, workers, len(requests))
	pool.Start(ctx)

	go func() {
		for _, req := range requests {
			job := Job{ID: req.Symbol + "/" + req.Strategy, Request: req}
			if err := pool.Submit(ctx, job); err != nil {
				break
			}
		}
		pool.Close()
	}()

	out := make(map[string]*Result, len(requests))
	for jr := range pool.Results() {
		out[jr.ID] = jr.Result
	}
	return out
}
