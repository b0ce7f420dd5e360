package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
)

// HandlerFunc runs one enrichment job. Returning an error marks the job for
// retry; terminal outcomes should be recorded in entity state and return nil.
type HandlerFunc func(ctx context.Context, payload queue.AssetPayload) error

// Processor dispatches jobs to the handler registered for their type.
type Processor struct {
	mu       sync.RWMutex
	handlers map[queue.JobType]HandlerFunc
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProcessor creates a processor that bounds each job by timeout.
func NewProcessor(timeout time.Duration, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Processor{handlers: make(map[queue.JobType]HandlerFunc), timeout: timeout, logger: logger}
}

// Register sets the handler for a job type.
func (p *Processor) Register(jobType queue.JobType, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[jobType] = h
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) (err error) {
	p.mu.RLock()
	h, ok := p.handlers[job.Type]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	payload, err := job.AssetPayload()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()

	start := time.Now()
	if err := h(ctx, payload); err != nil {
		return err
	}
	p.logger.Debug("job done",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("video_key", payload.VideoKey),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Dequeuer is satisfied by *queue.Queue.
type Dequeuer interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Consumer pulls jobs from Redis and runs them through a Processor.
type Consumer struct {
	queue  Dequeuer
	proc   *Processor
	logger *zap.Logger
}

// NewConsumer creates a Redis queue consumer.
func NewConsumer(q Dequeuer, proc *Processor, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{queue: q, proc: proc, logger: logger}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("enrichment worker stopping")
			return
		default:
		}

		job, err := c.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("dequeue error", zap.Error(err))
			sleepCtx(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		c.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := c.proc.Process(context.Background(), job); err != nil {
			c.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := c.queue.Retry(context.Background(), job); reErr != nil {
				c.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleepCtx(ctx, queue.RetryBackoff)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
