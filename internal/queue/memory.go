package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/logging"
)

// MemoryQueue is an in-process worker pool over a buffered channel. Jobs do
// not survive a restart.
type MemoryQueue struct {
	jobs chan Job
	opts Options
	log  *zap.Logger

	mu     sync.RWMutex
	closed bool

	retries sync.WaitGroup
}

func NewMemoryQueue(opts Options, log *zap.Logger) *MemoryQueue {
	opts = opts.normalized()
	return &MemoryQueue{
		jobs: make(chan Job, opts.Capacity),
		opts: opts,
		log:  log.Named("queue.memory"),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) (Job, error) {
	job = job.withDefaults()
	if err := q.push(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (q *MemoryQueue) push(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		q.log.Warn("worker pool queue full, rejecting job", logging.JobID(job.ID), logging.SubscriberID(job.SubscriberID))
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pending() int { return len(q.jobs) }

func (q *MemoryQueue) Consume(ctx context.Context, h Handler) error {
	var workers sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		workers.Add(1)
		go func(id int) {
			defer workers.Done()
			q.worker(ctx, id, h)
		}(i)
	}

	workers.Wait()
	q.retries.Wait()
	return nil
}

func (q *MemoryQueue) worker(ctx context.Context, id int, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.execute(ctx, id, h, job)
		}
	}
}

func (q *MemoryQueue) execute(ctx context.Context, worker int, h Handler, job Job) {
	start := time.Now()
	err := invoke(ctx, h, job)
	act, result, delay := settle(job, err, q.opts.Policy)
	observe(q.opts.Observer, job, result)

	fields := []zap.Field{
		logging.JobID(job.ID),
		logging.JobKind(string(job.Kind)),
		logging.Trigger(job.Trigger),
		logging.SubscriberID(job.SubscriberID),
		logging.Attempt(job.Attempt),
		zap.Int("worker", worker),
		zap.Duration("duration", time.Since(start)),
	}
	switch act {
	case actionAck:
		q.log.Debug("job finished", fields...)
	case actionDrop:
		q.log.Error("job failed, dropping", append(fields, zap.String("result", result), zap.Error(err))...)
	case actionRetry:
		q.log.Warn("job failed, scheduling retry", append(fields, zap.Duration("backoff", delay), zap.Error(err))...)
		q.scheduleRetry(ctx, job, delay)
	}
}

func (q *MemoryQueue) scheduleRetry(ctx context.Context, job Job, delay time.Duration) {
	job.Attempt++
	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			q.log.Warn("shutdown before retry, job lost", logging.JobID(job.ID))
		case <-timer.C:
			if err := q.push(ctx, job); err != nil {
				q.log.Error("failed to requeue job", logging.JobID(job.ID), zap.Error(err))
			}
		}
	}()
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	return nil
}
