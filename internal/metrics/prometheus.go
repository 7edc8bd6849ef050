package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MimoJanra/AuditPulse/internal/queue"
)

const namespace = "auditpulse"

type PrometheusRecorder struct {
	reg           *prom.Registry
	auditDuration *prom.HistogramVec
	audits        *prom.CounterVec
	renderFails   prom.Counter
	enqueued      *prom.CounterVec
	deliveries    *prom.CounterVec
	reportCache   *prom.CounterVec
}

// NewPrometheusRecorder registers the collectors on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	pr := &PrometheusRecorder{
		reg: reg,
		auditDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_duration_seconds",
			Help:      "Time spent generating an audit",
			Buckets:   prom.DefBuckets,
		}, []string{"trigger"}),
		audits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Audits generated by trigger",
		}, []string{"trigger"}),
		renderFails: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "PDF renders that failed",
		}),
		enqueued: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Delivery jobs placed on the queue by trigger",
		}, []string{"trigger"}),
		deliveries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery job attempts by result",
		}, []string{"result"}),
		reportCache: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_requests_total",
			Help:      "Rendered report cache lookups by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(pr.auditDuration, pr.audits, pr.renderFails, pr.enqueued, pr.deliveries, pr.reportCache)
	return pr
}

func (p *PrometheusRecorder) ObserveAudit(trigger string, d time.Duration) {
	if p == nil {
		return
	}
	p.audits.WithLabelValues(trigger).Inc()
	p.auditDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRenderFailure() {
	if p == nil {
		return
	}
	p.renderFails.Inc()
}

func (p *PrometheusRecorder) IncEnqueued(trigger string) {
	if p == nil {
		return
	}
	p.enqueued.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncReportCache(hit bool) {
	if p == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.reportCache.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) JobFinished(_ queue.Job, result string) {
	if p == nil {
		return
	}
	p.deliveries.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
