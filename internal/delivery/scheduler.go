package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

type DueEnqueuer interface {
	EnqueueDue(ctx context.Context) (int, error)
}

// Scheduler fires the recurring delivery trigger on a fixed interval.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	log       *zap.Logger
}

func NewScheduler(svc DueEnqueuer, interval time.Duration, log *zap.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("schedule interval must be positive, got %s", interval)
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	log = log.Named("scheduler")
	job, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func(ctx context.Context) {
			n, err := svc.EnqueueDue(ctx)
			if err != nil {
				log.Error("recurring trigger finished with errors", zap.Int("queued", n), zap.Error(err))
			}
		}),
		gocron.WithName("daily-report-trigger"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create recurring trigger: %w", err)
	}

	return &Scheduler{scheduler: s, job: job, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("starting scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.log.Info("stopping scheduler")
	return s.scheduler.Shutdown()
}

// RunNow fires the trigger once outside its interval. The scheduler must be
// started.
func (s *Scheduler) RunNow() error {
	return s.job.RunNow()
}

func (s *Scheduler) NextRun() (time.Time, error) {
	return s.job.NextRun()
}
