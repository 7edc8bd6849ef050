package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/auditor"
	"github.com/MimoJanra/AuditPulse/internal/cache"
	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/logging"
	"github.com/MimoJanra/AuditPulse/internal/metrics"
	"github.com/MimoJanra/AuditPulse/internal/models"
	"github.com/MimoJanra/AuditPulse/internal/notifications"
	"github.com/MimoJanra/AuditPulse/internal/queue"
	"github.com/MimoJanra/AuditPulse/internal/report"
	"github.com/MimoJanra/AuditPulse/internal/storage"
)

var (
	ErrInvalidAddress    = errors.New("invalid delivery address")
	ErrMissingSubscriber = errors.New("subscriber no longer exists")
)

const claimTTL = 25 * time.Hour

type Subscribers interface {
	Get(ctx context.Context, id uint) (*models.Subscriber, error)
	ListScheduled(ctx context.Context) ([]models.Subscriber, error)
	SetSchedule(ctx context.Context, id uint, target, address string) error
	ClearSchedule(ctx context.Context, id uint) error
}

type Audits interface {
	Save(ctx context.Context, snap *models.AuditSnapshot) (uint, error)
}

type Auditor interface {
	Run(ctx context.Context, target string) (auditor.Result, error)
}

type Renderer interface {
	Build(snap *models.AuditSnapshot, categorized report.Categorized) ([]byte, error)
}

// Deps are the collaborators of a Service. Claims is only consulted when
// DedupeDaily is set.
type Deps struct {
	Subscribers Subscribers
	Audits      Audits
	Auditor     Auditor
	Catalog     *catalog.Catalog
	Renderer    Renderer
	Sender      notifications.Sender
	Queue       queue.Enqueuer
	Claims      cache.KVStore
	Metrics     metrics.Recorder
	DedupeDaily bool
}

type Service struct {
	Deps
	log *zap.Logger
	now func() time.Time
}

type ScheduleResult struct {
	JobID  string `json:"job_id,omitempty"`
	Queued bool   `json:"queued"`
}

func NewService(d Deps, log *zap.Logger) *Service {
	if d.Metrics == nil {
		d.Metrics = metrics.NoopRecorder{}
	}
	if d.Renderer == nil {
		d.Renderer = report.NewBuilder()
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	return &Service{Deps: d, log: log.Named("delivery"), now: time.Now}
}

// ValidateAddress accepts a single RFC 5322 address and returns its bare
// addr-spec.
func ValidateAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, raw, err)
	}
	return addr.Address, nil
}

// Schedule stores the recurring delivery settings and queues one delivery
// right away. A failed enqueue leaves the schedule in place.
func (s *Service) Schedule(ctx context.Context, subscriberID uint, target, address string) (ScheduleResult, error) {
	target, err := auditor.ValidateTarget(target)
	if err != nil {
		return ScheduleResult{}, err
	}
	address, err = ValidateAddress(address)
	if err != nil {
		return ScheduleResult{}, err
	}

	if err := s.Subscribers.SetSchedule(ctx, subscriberID, target, address); err != nil {
		return ScheduleResult{}, err
	}
	s.log.Info("delivery scheduled", logging.SubscriberID(subscriberID), logging.Target(target))

	job, err := s.enqueue(ctx, queue.TriggerSchedule, subscriberID, target, address)
	if err != nil {
		s.log.Warn("initial delivery not queued", logging.SubscriberID(subscriberID), zap.Error(err))
		return ScheduleResult{Queued: false}, nil
	}
	return ScheduleResult{JobID: job.ID, Queued: true}, nil
}

func (s *Service) Unschedule(ctx context.Context, subscriberID uint) error {
	if err := s.Subscribers.ClearSchedule(ctx, subscriberID); err != nil {
		return err
	}
	s.log.Info("delivery unscheduled", logging.SubscriberID(subscriberID))
	return nil
}

// EnqueueDue queues one delivery per scheduled subscriber and returns how
// many were queued.
func (s *Service) EnqueueDue(ctx context.Context) (int, error) {
	subs, err := s.Subscribers.ListScheduled(ctx)
	if err != nil {
		return 0, err
	}

	var (
		queued int
		errs   []error
	)
	day := s.now().UTC().Format(time.DateOnly)
	for _, sub := range subs {
		target, address := deref(sub.ScheduledTargetURL), deref(sub.ScheduledDeliveryAddress)
		if address == "" {
			s.log.Warn("scheduled subscriber has no delivery address, skipping", logging.SubscriberID(sub.ID))
			continue
		}
		var claim string
		if s.DedupeDaily && s.Claims != nil {
			key := fmt.Sprintf("delivery:%d:%s", sub.ID, day)
			claimed, err := s.Claims.SetNX(ctx, key, []byte(queue.TriggerRecurring), claimTTL)
			switch {
			case err != nil:
				s.log.Warn("delivery claim failed, enqueueing anyway", logging.SubscriberID(sub.ID), zap.Error(err))
			case !claimed:
				s.log.Debug("delivery already claimed today", logging.SubscriberID(sub.ID))
				continue
			default:
				claim = key
			}
		}

		if _, err := s.enqueue(ctx, queue.TriggerRecurring, sub.ID, target, address); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %d: %w", sub.ID, err))
			if claim != "" {
				if err := s.Claims.Delete(ctx, claim); err != nil {
					s.log.Warn("failed to release delivery claim", logging.SubscriberID(sub.ID), zap.Error(err))
				}
			}
			continue
		}
		queued++
	}

	s.log.Info("recurring deliveries enqueued", zap.Int("queued", queued), zap.Int("scheduled", len(subs)))
	return queued, errors.Join(errs...)
}

func (s *Service) enqueue(ctx context.Context, trigger string, subscriberID uint, target, address string) (queue.Job, error) {
	job, err := s.Queue.Enqueue(ctx, queue.Job{
		Kind:            queue.KindScheduledReport,
		Trigger:         trigger,
		SubscriberID:    subscriberID,
		TargetURL:       target,
		DeliveryAddress: address,
	})
	if err != nil {
		return queue.Job{}, err
	}
	s.Metrics.IncEnqueued(trigger)
	return job, nil
}

// Handle runs one delivery: audit, persist, render, mail. The snapshot is
// kept even when rendering or sending fails.
func (s *Service) Handle(ctx context.Context, job queue.Job) error {
	if job.Kind != queue.KindScheduledReport {
		return queue.Permanent(fmt.Errorf("unknown job kind %q", job.Kind))
	}

	sub, err := s.Subscribers.Get(ctx, job.SubscriberID)
	if errors.Is(err, storage.ErrNotFound) {
		return queue.Permanent(fmt.Errorf("subscriber %d: %w", job.SubscriberID, ErrMissingSubscriber))
	}
	if err != nil {
		return err
	}

	target := job.TargetURL
	if target == "" {
		target = deref(sub.ScheduledTargetURL)
	}
	address := job.DeliveryAddress
	if address == "" {
		address = deref(sub.ScheduledDeliveryAddress)
	}
	if target == "" || address == "" {
		return queue.Permanent(fmt.Errorf("subscriber %d has no delivery settings: %w", sub.ID, ErrInvalidAddress))
	}

	log := s.log.With(logging.JobID(job.ID), logging.SubscriberID(sub.ID), logging.Target(target))

	started := time.Now()
	res, err := s.Auditor.Run(ctx, target)
	if err != nil {
		return fmt.Errorf("audit %s: %w", target, err)
	}
	s.Metrics.ObserveAudit(job.Trigger, time.Since(started))

	snap := &models.AuditSnapshot{
		TargetURL:          target,
		OwnerID:            sub.ID,
		PerformanceScore:   res.PerformanceScore,
		SecurityScore:      res.SecurityScore,
		AccessibilityScore: res.AccessibilityScore,
		Metrics:            res.Metrics,
	}
	if _, err := s.Audits.Save(ctx, snap); err != nil {
		return err
	}
	log = log.With(logging.RecordID(snap.ID))

	doc, err := s.Renderer.Build(snap, report.Categorize(s.Catalog, snap.Metrics))
	if err != nil {
		s.Metrics.IncRenderFailure()
		log.Error("report render failed", zap.Error(err))
		return queue.Permanent(err)
	}

	msg := notifications.ReportMessage(address, snap, len(snap.Metrics), report.Filename(snap), report.ContentType, doc)
	if err := s.Sender.Send(ctx, msg); err != nil {
		if !errors.Is(err, notifications.ErrDelivery) {
			err = fmt.Errorf("%w: %w", notifications.ErrDelivery, err)
		}
		return err
	}

	log.Info("report delivered", logging.Trigger(job.Trigger))
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
