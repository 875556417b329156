// Package worker provides the bounded concurrency primitives that drive
// fragment processing: a core-sized pool for local analysis, a semaphore
// bounding remote escalations, and the rate limiter the remote path honors.
package worker

import (
	"context"
	"sync"
)

// Job is one unit of fragment work. Execute must observe ctx and return a
// cancellation-tagged result quickly once ctx is done; the pool drains the
// whole queue through Execute even after cancellation so no submitted job
// disappears from the results.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job execution
type Result interface {
	GetError() error
}

// Pool executes jobs across a fixed number of workers. Fragments are
// independent units of work, so no ordering is guaranteed; each result is
// self-describing. Workers append results directly as they finish, so
// Submit never blocks on result backpressure and the caller may enqueue
// any number of jobs before calling Wait.
type Pool struct {
	workers    int
	jobQueue   chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	mu        sync.Mutex
	collected []Result
}

// NewPool creates a pool with the given worker count. The parent context
// carries the run-level cancellation signal; jobs executing after
// cancellation see a done context and short-circuit.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobQueue {
		result := job.Execute(p.ctx)
		p.mu.Lock()
		p.collected = append(p.collected, result)
		p.mu.Unlock()
	}
}

// Submit queues a job. Must not be called after Wait or Shutdown.
func (p *Pool) Submit(job Job) {
	p.jobQueue <- job
}

// Wait closes the queue, waits for the workers to drain it, and returns
// every collected result, one per submitted job.
func (p *Pool) Wait() []Result {
	p.closeOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
	p.cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collected
}

// Shutdown cancels outstanding work and drains the queue. Queued jobs
// still pass through Execute so they surface as cancellation-tagged
// results rather than vanishing.
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.closeOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
}
