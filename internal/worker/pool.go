package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
)

var (
	// ErrQueueFull is returned by Enqueue when every slot is taken.
	ErrQueueFull = errors.New("worker queue full")
	// ErrPoolClosed is returned by Enqueue after Shutdown.
	ErrPoolClosed = errors.New("worker pool closed")
)

// Pool runs jobs in-process on a fixed number of goroutines fed by a bounded queue.
// Jobs are not retried; handlers record failures in entity state.
type Pool struct {
	proc   *Processor
	jobs   chan *queue.Job
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts size workers reading from a queue of the given capacity.
func NewPool(proc *Processor, size, capacity int, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool{proc: proc, jobs: make(chan *queue.Job, capacity), logger: logger}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Enqueue schedules a job without blocking the caller.
func (p *Pool) Enqueue(_ context.Context, jobType queue.JobType, payload any) error {
	job, err := queue.NewJob(jobType, payload)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		if err := p.proc.Process(context.Background(), job); err != nil {
			p.logger.Error("background job failed",
				zap.String("job_id", job.ID),
				zap.String("type", string(job.Type)),
				zap.Error(err),
			)
		}
	}
}
