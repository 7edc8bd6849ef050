package metrics

import (
	"time"

	"github.com/MimoJanra/AuditPulse/internal/queue"
)

// Recorder receives audit, render and delivery events. A nil
// *PrometheusRecorder is a valid Recorder that records nothing.
type Recorder interface {
	ObserveAudit(trigger string, d time.Duration)
	IncRenderFailure()
	IncEnqueued(trigger string)
	IncReportCache(hit bool)
	JobFinished(job queue.Job, result string)
}

// NoopRecorder is used when metrics are not wired.
type NoopRecorder struct{}

func (NoopRecorder) ObserveAudit(string, time.Duration) {}
func (NoopRecorder) IncRenderFailure()                  {}
func (NoopRecorder) IncEnqueued(string)                 {}
func (NoopRecorder) IncReportCache(bool)                {}
func (NoopRecorder) JobFinished(queue.Job, string)      {}
