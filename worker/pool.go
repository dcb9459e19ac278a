package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ConstructFunc builds a model instance from a raw payload.
type ConstructFunc func(ctx context.Context, payload []byte) (any, error)

// Job is one payload to construct.
type Job struct {
	// ID identifies the job in its result; callers typically use the
	// source filename.
	ID string

	// Payload is the raw JSON or YAML document.
	Payload []byte
}

// JobResult pairs a constructed instance with the job that produced
// it.
type JobResult struct {
	ID string

	// Value is the constructed model instance, nil on error.
	Value any

	// Err holds the decode or validation failure, if any.
	Err error

	// Duration is the construction time.
	Duration time.Duration
}

// Pool fans construction jobs out to a fixed set of workers.
type Pool struct {
	workers   int
	construct ConstructFunc
	jobs      chan Job
	results   chan *JobResult
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewPool starts a pool of workers running fn. workers <= 0 selects
// runtime.NumCPU().
func NewPool(fn ConstructFunc, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		workers:   workers,
		construct: fn,
		jobs:      make(chan Job, workers*2),
		results:   make(chan *JobResult, workers*2),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			start := time.Now()
			value, err := p.construct(p.ctx, job.Payload)
			p.completed.Add(1)
			result := &JobResult{
				ID:       job.ID,
				Value:    value,
				Err:      err,
				Duration: time.Since(start),
			}
			select {
			case <-p.ctx.Done():
				return
			case p.results <- result:
			}
		}
	}
}

// Submit queues a job, blocking while the queue is full. Returns false
// once the pool is closed.
func (p *Pool) Submit(job Job) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		p.submitted.Add(1)
		return true
	}
}

// TrySubmit queues a job without blocking. Returns false when the
// queue is full or the pool is closed.
func (p *Pool) TrySubmit(job Job) bool {
	if p.closed.Load() {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		p.submitted.Add(1)
		return true
	default:
		return false
	}
}

// Results returns the channel construction results arrive on.
func (p *Pool) Results() <-chan *JobResult {
	return p.results
}

// Close stops accepting jobs, waits for in-flight work and closes the
// results channel.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
	close(p.results)
}

// Shutdown aborts outstanding work immediately.
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.wg.Wait()
	close(p.results)
}

// Submitted returns the number of jobs accepted.
func (p *Pool) Submitted() uint64 {
	return p.submitted.Load()
}

// Completed returns the number of jobs finished, including failures.
func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}
