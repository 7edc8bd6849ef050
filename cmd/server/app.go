package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MimoJanra/AuditPulse/internal/api"
	"github.com/MimoJanra/AuditPulse/internal/auditor"
	"github.com/MimoJanra/AuditPulse/internal/cache"
	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/config"
	"github.com/MimoJanra/AuditPulse/internal/delivery"
	"github.com/MimoJanra/AuditPulse/internal/metrics"
	"github.com/MimoJanra/AuditPulse/internal/notifications"
	"github.com/MimoJanra/AuditPulse/internal/queue"
	"github.com/MimoJanra/AuditPulse/internal/report"
	"github.com/MimoJanra/AuditPulse/internal/service"
	"github.com/MimoJanra/AuditPulse/internal/storage"
)

// app holds the process-wide collaborators shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	kv       cache.KVStore
	queue    queue.Queue
	recorder *metrics.PrometheusRecorder
	service  *service.Service
	delivery *delivery.Service
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.db, err = storage.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.kv, err = cache.Open(cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	a.recorder = metrics.NewPrometheusRecorder(nil)
	a.queue, err = queue.Open(ctx, cfg.Queue, a.recorder, log)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	gen := auditor.NewGenerator(cat, auditor.WithDelay(cfg.Audit.Delay))
	builder := report.NewBuilder()
	subs := storage.NewSubscriberRepo(a.db)
	audits := storage.NewAuditRepo(a.db)

	a.service = service.New(service.Deps{
		Subscribers: subs,
		Audits:      audits,
		Auditor:     gen,
		Catalog:     cat,
		Renderer:    builder,
		Cache:       a.kv,
		CacheTTL:    cfg.Cache.ReportTTL,
		Metrics:     a.recorder,
	}, log)

	a.delivery = delivery.NewService(delivery.Deps{
		Subscribers: subs,
		Audits:      audits,
		Auditor:     gen,
		Catalog:     cat,
		Renderer:    builder,
		Sender:      notifications.New(cfg.Mail, log),
		Queue:       a.queue,
		Claims:      a.kv,
		Metrics:     a.recorder,
		DedupeDaily: cfg.Schedule.DedupeDaily,
	}, log)

	return a, nil
}

func (a *app) router() *api.Server {
	return &api.Server{
		Service:  a.service,
		Delivery: a.delivery,
		Limiter:  api.NewKeyedLimiter(a.cfg.Audit.RateLimitPerMinute),
		Metrics:  a.recorder.Handler(),
		Log:      a.log.Named("api"),
	}
}

func (a *app) Close() {
	var errs []error
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
	}
	if a.db != nil {
		errs = append(errs, storage.Close(a.db))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown finished with errors", zap.Error(err))
	}
}
