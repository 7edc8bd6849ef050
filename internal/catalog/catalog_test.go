package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogShape(t *testing.T) {
	c := Default()

	cats := c.Categories()
	require.Len(t, cats, 4)
	assert.Equal(t, Performance, cats[0].Name)
	assert.Equal(t, Security, cats[1].Name)
	assert.Equal(t, Accessibility, cats[2].Name)
	assert.Equal(t, UsabilitySEO, cats[3].Name)

	assert.Len(t, cats[0].Metrics, 12)
	assert.Len(t, cats[1].Metrics, 10)
	assert.Len(t, cats[2].Metrics, 7)
	assert.Len(t, cats[3].Metrics, 8)

	assert.Equal(t, 37, c.Len())
	assert.Len(t, c.AllMetricNames(), 37)
}

func TestCategoriesReturnsCopies(t *testing.T) {
	c := Default()
	cats := c.Categories()
	cats[0].Metrics[0] = "mutated"

	assert.Equal(t, "Page Load Speed (LCP)", c.Categories()[0].Metrics[0])
}

func TestCategoryOf(t *testing.T) {
	c := Default()

	cat, ok := c.CategoryOf("HSTS Header Implementation")
	require.True(t, ok)
	assert.Equal(t, Security, cat)

	_, ok = c.CategoryOf("Carbon Footprint")
	assert.False(t, ok)
}

func TestNewRejectsDuplicateMetric(t *testing.T) {
	_, err := New(
		Category{Name: "A", Metrics: []string{"x", "y"}},
		Category{Name: "B", Metrics: []string{"y"}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"y"`)
}
