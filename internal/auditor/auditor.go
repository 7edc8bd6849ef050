package auditor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/models"
)

var ErrInvalidTarget = errors.New("invalid target url")

// ValidateTarget accepts absolute http and https URLs with a host and returns
// the trimmed form.
func ValidateTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url required", ErrInvalidTarget)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidTarget)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: host required", ErrInvalidTarget)
	}
	return raw, nil
}

type ScoreRange struct {
	Min, Max int
}

var (
	PerformanceRange   = ScoreRange{Min: 50, Max: 98}
	SecurityRange      = ScoreRange{Min: 65, Max: 100}
	AccessibilityRange = ScoreRange{Min: 55, Max: 95}
)

const (
	minSeconds = 1.0
	maxSeconds = 4.5
)

var latencyPattern = regexp.MustCompile(`(?i)\b(speed|time|latency)\b`)

type Result struct {
	PerformanceScore   int
	SecurityScore      int
	AccessibilityScore int
	Metrics            models.MetricSet
}

type Generator struct {
	catalog *catalog.Catalog
	delay   time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

func WithDelay(d time.Duration) Option {
	return func(g *Generator) { g.delay = d }
}

func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

func NewGenerator(cat *catalog.Catalog, opts ...Option) *Generator {
	g := &Generator{
		catalog: cat,
		delay:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return g
}

// Run simulates an audit of target. The target must already be validated.
func (g *Generator) Run(ctx context.Context, target string) (Result, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	res := Result{
		PerformanceScore:   g.intIn(PerformanceRange),
		SecurityScore:      g.intIn(SecurityRange),
		AccessibilityScore: g.intIn(AccessibilityRange),
		Metrics:            make(models.MetricSet, g.catalog.Len()),
	}

	for _, cat := range g.catalog.Categories() {
		for _, name := range cat.Metrics {
			res.Metrics[name] = g.valueFor(cat.Name, name)
		}
	}
	return res, nil
}

func (g *Generator) valueFor(category, metric string) models.MetricValue {
	switch {
	case latencyPattern.MatchString(metric):
		secs := minSeconds + g.rng.Float64()*(maxSeconds-minSeconds)
		return models.Numeric(math.Round(secs*100) / 100)
	case category == catalog.Security || category == catalog.Accessibility:
		switch p := g.rng.Float64(); {
		case p < 0.8:
			return models.StatusValue(models.StatusPassed)
		case p < 0.9:
			return models.StatusValue(models.StatusWarning)
		default:
			return models.StatusValue(models.StatusFailed)
		}
	default:
		switch p := g.rng.Float64(); {
		case p < 0.3:
			return models.Qualitative(models.QualityExcellent)
		case p < 0.8:
			return models.Qualitative(models.QualityGood)
		case p < 0.9:
			return models.Qualitative(models.QualityNeedsImprovement)
		default:
			return models.Qualitative(models.QualityPoor)
		}
	}
}

func (g *Generator) intIn(r ScoreRange) int {
	return r.Min + g.rng.IntN(r.Max-r.Min+1)
}
