package report

import "github.com/MimoJanra/AuditPulse/internal/models"

type Health string

const (
	HealthGood     Health = "Good"
	HealthWarning  Health = "Warning"
	HealthCritical Health = "Critical"
	HealthUnknown  Health = "N/A"
)

// ScoreHealth grades a 0-100 summary score.
func ScoreHealth(score int) Health {
	switch {
	case score >= 80:
		return HealthGood
	case score >= 60:
		return HealthWarning
	default:
		return HealthCritical
	}
}

// Latency bands follow the Core Web Vitals LCP thresholds.
const (
	goodLatencySeconds    = 2.5
	warningLatencySeconds = 4.0
)

func DeriveHealth(v models.MetricValue) Health {
	switch v.Kind {
	case models.KindNumeric:
		switch {
		case v.Seconds <= goodLatencySeconds:
			return HealthGood
		case v.Seconds <= warningLatencySeconds:
			return HealthWarning
		default:
			return HealthCritical
		}
	case models.KindStatus:
		switch v.Status {
		case models.StatusPassed:
			return HealthGood
		case models.StatusWarning:
			return HealthWarning
		case models.StatusFailed:
			return HealthCritical
		}
	case models.KindQualitative:
		switch v.Quality {
		case models.QualityExcellent, models.QualityGood:
			return HealthGood
		case models.QualityNeedsImprovement:
			return HealthWarning
		case models.QualityPoor:
			return HealthCritical
		}
	}
	return HealthUnknown
}
