package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/models"
)

func fullMetrics(cat *catalog.Catalog) models.MetricSet {
	m := models.MetricSet{}
	for _, c := range cat.Categories() {
		for _, name := range c.Metrics {
			switch c.Name {
			case catalog.Security, catalog.Accessibility:
				m[name] = models.StatusValue(models.StatusPassed)
			default:
				m[name] = models.Qualitative(models.QualityGood)
			}
		}
	}
	m["Page Load Speed (LCP)"] = models.Numeric(3.1)
	return m
}

func sampleSnapshot(metrics models.MetricSet) *models.AuditSnapshot {
	return &models.AuditSnapshot{
		ID:                 42,
		TargetURL:          "https://example.com/shop",
		CreatedAt:          time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		OwnerID:            1,
		PerformanceScore:   83,
		SecurityScore:      64,
		AccessibilityScore: 41,
		Metrics:            metrics,
	}
}

func TestCategorizeCoversCatalogWithoutDuplicates(t *testing.T) {
	cat := catalog.Default()
	view := Categorize(cat, fullMetrics(cat))

	seen := map[string]struct{}{}
	for _, section := range view {
		for _, row := range section.Metrics {
			_, dup := seen[row.Name]
			require.False(t, dup, "duplicate %s", row.Name)
			seen[row.Name] = struct{}{}
		}
	}
	if diff := cmp.Diff(cat.AllMetricNames(), seen); diff != "" {
		t.Fatalf("categorized keys differ from catalog (-want +got):\n%s", diff)
	}
}

func TestCategorizeMissingKeyYieldsNotApplicable(t *testing.T) {
	cat := catalog.Default()
	metrics := fullMetrics(cat)
	delete(metrics, "Broken Links Check")
	metrics["Retired Metric"] = models.Qualitative(models.QualityPoor)

	view := Categorize(cat, metrics)

	v, ok := view.Value(catalog.UsabilitySEO, "Broken Links Check")
	require.True(t, ok)
	assert.Equal(t, models.NotApplicable(), v)
	assert.Equal(t, "N/A", v.String())

	asMap := view.AsMap()
	_, ok = asMap[catalog.UsabilitySEO]["Retired Metric"]
	assert.False(t, ok)
	assert.Len(t, asMap[catalog.Performance], 12)
}

func TestCategorizePreservesCatalogOrder(t *testing.T) {
	cat, err := catalog.New(
		catalog.Category{Name: "B", Metrics: []string{"b2", "b1"}},
		catalog.Category{Name: "A", Metrics: []string{"a1"}},
	)
	require.NoError(t, err)

	got := Categorize(cat, models.MetricSet{"b1": models.Numeric(1.2)})
	want := Categorized{
		{Name: "B", Metrics: []MetricRow{
			{Name: "b2", Value: models.NotApplicable(), Health: HealthUnknown},
			{Name: "b1", Value: models.Numeric(1.2), Health: HealthGood},
		}},
		{Name: "A", Metrics: []MetricRow{
			{Name: "a1", Value: models.NotApplicable(), Health: HealthUnknown},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Categorize mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveHealth(t *testing.T) {
	cases := []struct {
		value models.MetricValue
		want  Health
	}{
		{models.Numeric(1.4), HealthGood},
		{models.Numeric(2.5), HealthGood},
		{models.Numeric(3.9), HealthWarning},
		{models.Numeric(4.4), HealthCritical},
		{models.StatusValue(models.StatusPassed), HealthGood},
		{models.StatusValue(models.StatusWarning), HealthWarning},
		{models.StatusValue(models.StatusFailed), HealthCritical},
		{models.Qualitative(models.QualityExcellent), HealthGood},
		{models.Qualitative(models.QualityGood), HealthGood},
		{models.Qualitative(models.QualityNeedsImprovement), HealthWarning},
		{models.Qualitative(models.QualityPoor), HealthCritical},
		{models.NotApplicable(), HealthUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DeriveHealth(tc.value), tc.value.String())
	}

	assert.Equal(t, HealthGood, ScoreHealth(80))
	assert.Equal(t, HealthWarning, ScoreHealth(79))
	assert.Equal(t, HealthWarning, ScoreHealth(60))
	assert.Equal(t, HealthCritical, ScoreHealth(59))
}

func TestBuildIsDeterministic(t *testing.T) {
	cat := catalog.Default()
	snap := sampleSnapshot(fullMetrics(cat))
	view := Categorize(cat, snap.Metrics)
	b := NewBuilder()

	first, err := b.Build(snap, view)
	require.NoError(t, err)
	second, err := b.Build(snap, view)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(first, []byte("%PDF-")))
	assert.Equal(t, first, second)
}

func TestLayoutScoresAndSections(t *testing.T) {
	cat := catalog.Default()
	snap := sampleSnapshot(fullMetrics(cat))
	doc := NewBuilder(WithTitle("Weekly")).Layout(snap, Categorize(cat, snap.Metrics))

	assert.Equal(t, "Weekly", doc.Title)
	assert.Equal(t, uint(42), doc.RecordID)
	want := []ScoreRow{
		{Label: "Performance", Score: 83, Health: HealthGood},
		{Label: "Security", Score: 64, Health: HealthWarning},
		{Label: "Accessibility", Score: 41, Health: HealthCritical},
	}
	if diff := cmp.Diff(want, doc.Scores); diff != "" {
		t.Fatalf("scores mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, doc.Sections, 4)
}

type failingBackend struct{ err error }

func (f failingBackend) Render(Document) ([]byte, error) { return nil, f.err }

type panickingBackend struct{}

func (panickingBackend) Render(Document) ([]byte, error) { panic("font table corrupt") }

type emptyBackend struct{}

func (emptyBackend) Render(Document) ([]byte, error) { return nil, nil }

func TestBuildSurfacesRenderFailure(t *testing.T) {
	cat := catalog.Default()
	snap := sampleSnapshot(fullMetrics(cat))
	view := Categorize(cat, snap.Metrics)

	backends := map[string]Backend{
		"error": failingBackend{err: errors.New("disk full")},
		"panic": panickingBackend{},
		"empty": emptyBackend{},
	}
	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			out, err := NewBuilder(WithBackend(backend)).Build(snap, view)
			require.ErrorIs(t, err, ErrRender)
			assert.Nil(t, out)
		})
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]string{
		"https://example.com":             "AuditPulse_Report_7_example.com.pdf",
		"https://example.com/shop/cart":   "AuditPulse_Report_7_example.com_shop_cart.pdf",
		"http://example.com:8080/a?b=c&d": "AuditPulse_Report_7_example.com_8080_a_b_c_d.pdf",
		"https://example.com/":            "AuditPulse_Report_7_example.com.pdf",
	}
	for target, want := range cases {
		assert.Equal(t, want, Filename(&models.AuditSnapshot{ID: 7, TargetURL: target}), target)
	}
}
