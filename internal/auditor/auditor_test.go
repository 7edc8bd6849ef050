package auditor

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/models"
)

func newTestGenerator(seed uint64) *Generator {
	return NewGenerator(catalog.Default(), WithDelay(0), WithRand(rand.New(rand.NewPCG(seed, seed))))
}

func TestRunProducesEveryCatalogMetric(t *testing.T) {
	gen := newTestGenerator(1)
	cat := catalog.Default()

	for i := 0; i < 50; i++ {
		res, err := gen.Run(t.Context(), "https://example.com")
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.PerformanceScore, 50)
		assert.LessOrEqual(t, res.PerformanceScore, 98)
		assert.GreaterOrEqual(t, res.SecurityScore, 65)
		assert.LessOrEqual(t, res.SecurityScore, 100)
		assert.GreaterOrEqual(t, res.AccessibilityScore, 55)
		assert.LessOrEqual(t, res.AccessibilityScore, 95)

		require.Len(t, res.Metrics, 37)
		for name := range cat.AllMetricNames() {
			v, ok := res.Metrics[name]
			require.True(t, ok, "missing %s", name)
			assert.NotEmpty(t, v.String())
		}
	}
}

func TestRunValueShapePerMetricClass(t *testing.T) {
	gen := newTestGenerator(7)
	res, err := gen.Run(t.Context(), "https://example.com")
	require.NoError(t, err)

	timed := []string{
		"Page Load Speed (LCP)",
		"Total Blocking Time (TBT)",
		"Time to Interactive (TTI)",
		"Server Response Time (TTFB)",
		"JavaScript Execution Time",
	}
	for _, name := range timed {
		v := res.Metrics[name]
		require.Equal(t, models.KindNumeric, v.Kind, name)
		assert.GreaterOrEqual(t, v.Seconds, 1.0)
		assert.LessOrEqual(t, v.Seconds, 4.5)
		assert.Regexp(t, `^\d\.\d{2}s$`, v.String())
	}

	assert.Equal(t, models.KindStatus, res.Metrics["HSTS Header Implementation"].Kind)
	assert.Equal(t, models.KindStatus, res.Metrics["Contrast Ratio Check"].Kind)
	assert.Equal(t, models.KindQualitative, res.Metrics["First Contentful Paint (FCP)"].Kind)
	assert.Equal(t, models.KindQualitative, res.Metrics["Readability Score"].Kind)
}

func TestRunHonoursDelayAndCancellation(t *testing.T) {
	gen := NewGenerator(catalog.Default(), WithDelay(time.Hour))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := gen.Run(ctx, "https://example.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunIsSafeForConcurrentUse(t *testing.T) {
	gen := newTestGenerator(3)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := gen.Run(t.Context(), "https://example.com")
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-errs)
	}
}

func TestValidateTarget(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/path?q=1", "  https://a.example  "}
	for _, raw := range valid {
		_, err := ValidateTarget(raw)
		assert.NoError(t, err, raw)
	}

	invalid := []string{"", "example.com", "ftp://example.com", "https://", "javascript:alert(1)", "http://%zz"}
	for _, raw := range invalid {
		_, err := ValidateTarget(raw)
		assert.True(t, errors.Is(err, ErrInvalidTarget), raw)
	}
}
