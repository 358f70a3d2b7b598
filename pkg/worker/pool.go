// Package worker provides a bounded worker pool for running graph analyses off
// the request path. Submissions beyond the queue capacity are rejected
// immediately.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 16
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("worker queue full")

	// ErrClosed is returned by Submit after Close has been called.
	ErrClosed = errors.New("worker pool closed")
)

// Task is the work a Job performs. It receives the submitter's context.
type Task func(ctx context.Context) error

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// Name labels the job in logs
	Name string

	ctx  context.Context
	task Task
	done chan error
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool (defaults to 2).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 16).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool runs submitted tasks on a fixed set of goroutines.
type Pool struct {
	config *Config
	queue  chan *Job
	wg     sync.WaitGroup
	logger *zap.Logger

	// mu guards closed so Submit never sends on a closed queue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Submit enqueues task and blocks until it has run or ctx is done.
// It returns ErrQueueFull without waiting when the queue has no capacity, the
// task's own error once it ran, or ctx.Err() if the caller stopped waiting.
// A task whose submitter already gave up is skipped when dequeued.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	job := &Job{
		Name: name,
		ctx:  ctx,
		task: task,
		done: make(chan error, 1),
	}

	if err := p.enqueue(job); err != nil {
		return err
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of jobs waiting for a worker.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) enqueue(job *Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", zap.String("job", job.Name))
		return nil
	default:
		p.logger.Warn("job not queued, queue full", zap.String("job", job.Name))
		return ErrQueueFull
	}
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job *Job) {
	if err := job.ctx.Err(); err != nil {
		p.logger.Debug("skipping abandoned job",
			zap.String("job", job.Name),
			zap.Error(err),
		)
		job.done <- err
		return
	}

	err := job.task(job.ctx)
	if err != nil {
		p.logger.Debug("job failed",
			zap.String("job", job.Name),
			zap.Error(err),
		)
	}
	job.done <- err
}
