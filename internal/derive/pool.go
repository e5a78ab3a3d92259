package derive

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// Pool is a fixed-size worker pool that runs independent derivation jobs
// (one per face mask, person, or tag) to completion and collects every
// error rather than racing to a first result. The shape — a buffered
// work queue, a fixed set of long-lived worker goroutines, an atomic
// in-flight counter — follows friggdb's query pool; the job contract is
// different because derivation jobs write files and report errors
// instead of racing to the first non-nil trace.
type Pool struct {
	workQueue chan func() error
	size      *atomic.Int32
	wg        sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewPool starts workers goroutines reading from a queue of depth
// queueDepth. Jobs submitted past that depth block until a slot frees up.
func NewPool(workers, queueDepth int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueDepth <= 0 {
		queueDepth = 1
	}
	p := &Pool{
		workQueue: make(chan func() error, queueDepth),
		size:      atomic.NewInt32(0),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for job := range p.workQueue {
		err := job()
		jobsCompleted.Inc()
		if err != nil {
			jobsFailed.Inc()
			p.mu.Lock()
			p.errs = append(p.errs, err)
			p.mu.Unlock()
		}
		p.size.Dec()
		jobsInFlight.Dec()
		p.wg.Done()
	}
}

// Submit enqueues job, blocking if the queue is full.
func (p *Pool) Submit(job func() error) {
	p.wg.Add(1)
	p.size.Inc()
	jobsInFlight.Inc()
	p.workQueue <- job
}

// InFlight returns the number of jobs queued or running.
func (p *Pool) InFlight() int32 { return p.size.Load() }

// Wait blocks until every submitted job has completed, then returns a
// combined error for every job that failed (nil if all succeeded).
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errs) == 0 {
		return nil
	}
	return fmt.Errorf("derive: %d job(s) failed, first: %w", len(p.errs), p.errs[0])
}

// Shutdown closes the work queue so workers exit once it drains. Call
// before Wait, once every job has been Submit-ted.
func (p *Pool) Shutdown() {
	close(p.workQueue)
}
