// Package worker runs best-effort background jobs on a bounded pool.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/austinkregel/local-media/playerd/internal/logging"
)

// Job is a unit of background work. Its error is logged and otherwise dropped.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool manages background workers for fire-and-forget jobs.
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	log     zerolog.Logger
	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with the given worker count and queue size and starts it.
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
		log:    logging.For("worker"),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}
	return p
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool is stopped and the job was dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.log.Warn().Str("job", job.Name).Msg("queue full, dropping job")
		return false
	}
}

// Stop closes the queue, cancels running jobs and waits for workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *Pool) process(job Job) {
	if job.Run == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Str("job", job.Name).Interface("panic", r).Msg("job panicked")
		}
	}()
	if err := job.Run(p.ctx); err != nil {
		p.log.Debug().Err(err).Str("job", job.Name).Msg("job failed")
	}
}
