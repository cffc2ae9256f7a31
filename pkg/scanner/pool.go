package scanner

import (
	"context"
	"sync"
	"sync/atomic"
)

// AnalyzeFunc produces the result for one file.
type AnalyzeFunc func(ctx context.Context, path string) FileResult

// WorkerPool runs an AnalyzeFunc over submitted files with a fixed number
// of goroutines. Results arrive in completion order.
type WorkerPool struct {
	size    int
	jobs    chan Job
	results chan FileResult
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	analyze AnalyzeFunc

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// Job is one file to analyze.
type Job struct {
	Path string
}

// NewWorkerPool creates a pool of workers running analyzer.AnalyzeFile.
func NewWorkerPool(ctx context.Context, workers int, analyzer *Analyzer) *WorkerPool {
	return NewWorkerPoolFunc(ctx, workers, analyzer.AnalyzeFile)
}

// NewWorkerPoolFunc creates a pool of workers running fn.
func NewWorkerPoolFunc(ctx context.Context, workers int, fn AnalyzeFunc) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		size:    workers,
		jobs:    make(chan Job, workers*2),
		results: make(chan FileResult, workers*2),
		ctx:     poolCtx,
		cancel:  cancel,
		analyze: fn,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.wg.Add(wp.size)
	for i := 0; i < wp.size; i++ {
		go wp.work()
	}
}

func (wp *WorkerPool) work() {
	defer wp.wg.Done()

	for {
		var job Job
		select {
		case <-wp.ctx.Done():
			return
		case j, ok := <-wp.jobs:
			if !ok {
				return
			}
			job = j
		}

		result := wp.analyze(wp.ctx, job.Path)
		wp.processed.Add(1)
		switch {
		case result.Error != nil:
			wp.failed.Add(1)
		case result.Skipped != "":
			wp.skipped.Add(1)
		}

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit queues a job. It blocks while the queue is full and returns false
// once the pool is cancelled.
func (wp *WorkerPool) Submit(job Job) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Results returns the channel for receiving file results.
func (wp *WorkerPool) Results() <-chan FileResult {
	return wp.results
}

// Close signals that no more jobs will be submitted, waits for the workers
// to finish and closes Results.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Stats returns current worker pool statistics.
func (wp *WorkerPool) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		Workers:        wp.size,
		ProcessedJobs:  wp.processed.Load(),
		SkippedJobs:    wp.skipped.Load(),
		Errors:         wp.failed.Load(),
		PendingJobs:    int64(len(wp.jobs)),
		PendingResults: int64(len(wp.results)),
	}
}

// WorkerPoolStats contains runtime statistics for the worker pool.
type WorkerPoolStats struct {
	Workers        int   `json:"workers"`
	ProcessedJobs  int64 `json:"processed_jobs"`
	SkippedJobs    int64 `json:"skipped_jobs"`
	Errors         int64 `json:"errors"`
	PendingJobs    int64 `json:"pending_jobs"`
	PendingResults int64 `json:"pending_results"`
}
