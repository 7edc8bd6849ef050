package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MimoJanra/AuditPulse/internal/auditor"
	"github.com/MimoJanra/AuditPulse/internal/cache"
	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/logging"
	"github.com/MimoJanra/AuditPulse/internal/metrics"
	"github.com/MimoJanra/AuditPulse/internal/models"
	"github.com/MimoJanra/AuditPulse/internal/report"
	"github.com/MimoJanra/AuditPulse/internal/storage"
)

var (
	ErrUnauthorized       = errors.New("not authorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAccount     = errors.New("invalid account details")
)

const (
	MinPasswordLength = 8
	DashboardLimit    = 10
	AdminRecentLimit  = 50

	TriggerManual = "manual"
)

type Subscribers interface {
	Create(ctx context.Context, s *models.Subscriber) error
	Get(ctx context.Context, id uint) (*models.Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	List(ctx context.Context) ([]models.Subscriber, error)
}

type Audits interface {
	Save(ctx context.Context, snap *models.AuditSnapshot) (uint, error)
	Get(ctx context.Context, id uint) (*models.AuditSnapshot, error)
	ListForOwner(ctx context.Context, ownerID uint, limit int) ([]models.AuditSnapshot, error)
	ListRecent(ctx context.Context, limit int) ([]models.AuditSnapshot, error)
	CountAll(ctx context.Context) (int64, error)
	CountForOwner(ctx context.Context, ownerID uint) (int64, error)
}

type Auditor interface {
	Run(ctx context.Context, target string) (auditor.Result, error)
}

type Renderer interface {
	Build(snap *models.AuditSnapshot, categorized report.Categorized) ([]byte, error)
}

// Deps are the collaborators of a Service. Cache may be nil, in which case
// every download is rendered.
type Deps struct {
	Subscribers Subscribers
	Audits      Audits
	Auditor     Auditor
	Catalog     *catalog.Catalog
	Renderer    Renderer
	Cache       cache.KVStore
	CacheTTL    time.Duration
	Metrics     metrics.Recorder
	HashCost    int
}

type Service struct {
	deps Deps
	log  *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

// ReportView is a snapshot together with its per-category breakdown.
type ReportView struct {
	Snapshot *models.AuditSnapshot `json:"snapshot"`
	Sections report.Categorized    `json:"sections"`
}

type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

func New(d Deps, log *zap.Logger) *Service {
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Renderer == nil {
		d.Renderer = report.NewBuilder()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NoopRecorder{}
	}
	if d.HashCost == 0 {
		d.HashCost = bcrypt.DefaultCost
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = 24 * time.Hour
	}
	return &Service{deps: d, log: log.Named("service")}
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("%w: email %q", ErrInvalidAccount, raw)
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Service) Register(ctx context.Context, email, password string) (*models.Subscriber, error) {
	return s.createAccount(ctx, email, password, false)
}

func (s *Service) createAccount(ctx context.Context, email, password string, admin bool) (*models.Subscriber, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidAccount, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.deps.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	sub := &models.Subscriber{Email: email, PasswordHash: string(hash), IsAdmin: admin}
	if err := s.deps.Subscribers.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.log.Info("subscriber registered", logging.SubscriberID(sub.ID), zap.Bool("admin", admin))
	return sub, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Subscriber, error) {
	sub, err := s.deps.Subscribers.GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		// Unknown accounts still pay for one hash comparison.
		_ = bcrypt.CompareHashAndPassword(s.unknownAccountHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(sub.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return sub, nil
}

func (s *Service) unknownAccountHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("auditpulse-unknown-account"), s.deps.HashCost)
		if err != nil {
			s.log.Warn("failed to prepare placeholder password hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// SeedAdmin creates the administrator account on first run. It does nothing
// when no password is configured or the account already exists.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if password == "" {
		s.log.Info("admin password not configured, skipping admin seeding")
		return nil
	}
	_, err := s.deps.Subscribers.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if _, err := s.createAccount(ctx, email, password, true); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func (s *Service) RunAudit(ctx context.Context, requester *models.Subscriber, target string) (*models.AuditSnapshot, error) {
	target, err := auditor.ValidateTarget(target)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := s.deps.Auditor.Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", target, err)
	}
	s.deps.Metrics.ObserveAudit(TriggerManual, time.Since(started))

	snap := &models.AuditSnapshot{
		TargetURL:          target,
		OwnerID:            requester.ID,
		PerformanceScore:   res.PerformanceScore,
		SecurityScore:      res.SecurityScore,
		AccessibilityScore: res.AccessibilityScore,
		Metrics:            res.Metrics,
	}
	if _, err := s.deps.Audits.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.log.Info("audit completed", logging.SubscriberID(requester.ID), logging.RecordID(snap.ID), logging.Target(target))
	return snap, nil
}

// load fetches a record and checks that requester may see it.
func (s *Service) load(ctx context.Context, requester *models.Subscriber, id uint) (*models.AuditSnapshot, error) {
	snap, err := s.deps.Audits.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap.OwnerID != requester.ID && !requester.IsAdmin {
		s.log.Warn("report access denied", logging.SubscriberID(requester.ID), logging.RecordID(id))
		return nil, ErrUnauthorized
	}
	return snap, nil
}

func (s *Service) ViewReport(ctx context.Context, requester *models.Subscriber, id uint) (*ReportView, error) {
	snap, err := s.load(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	return &ReportView{Snapshot: snap, Sections: report.Categorize(s.deps.Catalog, snap.Metrics)}, nil
}

func (s *Service) DownloadReport(ctx context.Context, requester *models.Subscriber, id uint) (*Download, error) {
	snap, err := s.load(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	dl := &Download{Filename: report.Filename(snap), ContentType: report.ContentType}

	key := "report:pdf:" + strconv.FormatUint(uint64(id), 10)
	if s.deps.Cache != nil {
		data, err := s.deps.Cache.Get(ctx, key)
		switch {
		case err == nil:
			s.deps.Metrics.IncReportCache(true)
			dl.Data = data
			return dl, nil
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn("report cache lookup failed", logging.RecordID(id), zap.Error(err))
		}
		s.deps.Metrics.IncReportCache(false)
	}

	data, err := s.deps.Renderer.Build(snap, report.Categorize(s.deps.Catalog, snap.Metrics))
	if err != nil {
		s.deps.Metrics.IncRenderFailure()
		s.log.Error("report render failed", logging.RecordID(id), zap.Error(err))
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, data, s.deps.CacheTTL); err != nil {
			s.log.Warn("report cache store failed", logging.RecordID(id), zap.Error(err))
		}
	}
	dl.Data = data
	return dl, nil
}

func (s *Service) Dashboard(ctx context.Context, requester *models.Subscriber) (*models.Dashboard, error) {
	sub, err := s.deps.Subscribers.Get(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.deps.Audits.ListForOwner(ctx, sub.ID, DashboardLimit)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Audits.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	own, err := s.deps.Audits.CountForOwner(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Recent:        recent,
		TotalReports:  total,
		OwnReports:    own,
		ScheduleState: sub.ScheduleState(),
		Subscriber:    *sub,
	}, nil
}

func (s *Service) AdminOverview(ctx context.Context, requester *models.Subscriber) (*models.AdminOverview, error) {
	if requester == nil || !requester.IsAdmin {
		return nil, ErrUnauthorized
	}
	subs, err := s.deps.Subscribers.List(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.deps.Audits.ListRecent(ctx, AdminRecentLimit)
	if err != nil {
		return nil, err
	}
	return &models.AdminOverview{Subscribers: subs, Recent: recent}, nil
}
