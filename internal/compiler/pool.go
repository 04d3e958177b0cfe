package compiler

import (
	"context"
	"sync"
)

// Job is one long-running piece of a compile, run on a pool worker.
type Job struct {
	Name string
	// Ctx is handed to Run; a job whose context is already done is not
	// started.
	Ctx context.Context
	Run func(ctx context.Context) (any, error)
	// ResultChan receives exactly one Result. It should be buffered.
	ResultChan chan Result
}

// Result is the outcome of a Job.
type Result struct {
	Name  string
	Value any
	Err   error
}

// WorkerPool manages goroutines for geometry compilation
type WorkerPool struct {
	jobQueue chan Job
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &WorkerPool{
		jobQueue: make(chan Job, queueSize),
		workers:  max(1, workers),
		ctx:      ctx,
		cancel:   cancel,
	}

	// Start worker goroutines
	for range pool.workers {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool
}

// SubmitJobBlocking submits a job and blocks until it's queued, the job's
// context is done, or the pool shuts down.
func (p *WorkerPool) SubmitJobBlocking(job Job) error {
	done := context.Background().Done()
	if job.Ctx != nil {
		done = job.Ctx.Done()
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-done:
		return job.Ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// worker is the worker goroutine that processes jobs
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			ctx := job.Ctx
			if ctx == nil {
				ctx = p.ctx
			}
			result := Result{Name: job.Name}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Value, result.Err = job.Run(ctx)
			}

			// Send result back
			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers once their current job is done. Jobs still
// queued are dropped.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
