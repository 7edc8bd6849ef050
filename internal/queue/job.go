package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrClosed    = errors.New("job queue closed")
)

type Kind string

const KindScheduledReport Kind = "scheduled_report"

const (
	TriggerSchedule  = "schedule"
	TriggerRecurring = "recurring"
)

type Job struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Trigger         string    `json:"trigger"`
	SubscriberID    uint      `json:"subscriber_id"`
	TargetURL       string    `json:"target_url"`
	DeliveryAddress string    `json:"delivery_address"`
	Attempt         int       `json:"attempt"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

func (j Job) withDefaults() Job {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Kind == "" {
		j.Kind = KindScheduledReport
	}
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now().UTC()
	}
	return j
}

type Handler interface {
	Handle(ctx context.Context, job Job) error
}

type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) (Job, error)
}

// Queue moves jobs from producers to a Handler. Consume blocks until ctx is
// cancelled and returns nil on a clean shutdown.
type Queue interface {
	Enqueuer
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Observer is told how every delivery attempt ended.
type Observer interface {
	JobFinished(job Job, result string)
}

const (
	ResultSucceeded = "succeeded"
	ResultRetried   = "retried"
	ResultDropped   = "dropped"
	ResultExhausted = "exhausted"
)

type Options struct {
	Workers  int
	Capacity int
	Policy   Policy
	Observer Observer
}

func (o Options) normalized() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Capacity < 1 {
		o.Capacity = 100
	}
	if o.Policy == (Policy{}) {
		o.Policy = DefaultPolicy()
	}
	return o
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type action int

const (
	actionAck action = iota
	actionRetry
	actionDrop
)

func settle(job Job, err error, p Policy) (action, string, time.Duration) {
	switch {
	case err == nil:
		return actionAck, ResultSucceeded, 0
	case IsPermanent(err):
		return actionDrop, ResultDropped, 0
	case job.Attempt >= p.MaxRetries:
		return actionDrop, ResultExhausted, 0
	default:
		return actionRetry, ResultRetried, p.Delay(job.Attempt + 1)
	}
}

// invoke runs the handler and turns a panic into an error.
func invoke(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return h.Handle(ctx, job)
}

func observe(o Observer, job Job, result string) {
	if o != nil {
		o.JobFinished(job, result)
	}
}
