package catalog

import (
	"fmt"
	"slices"
)

const (
	Performance   = "Performance"
	Security      = "Security"
	Accessibility = "Accessibility"
	UsabilitySEO  = "Usability_SEO"
)

type Category struct {
	Name    string   `json:"name" example:"Performance"`
	Metrics []string `json:"metrics"`
}

// Catalog is an ordered, immutable mapping of category name to metric names.
// Metric names are unique across the whole catalog.
type Catalog struct {
	categories []Category
	index      map[string]string
}

func New(categories ...Category) (*Catalog, error) {
	c := &Catalog{index: make(map[string]string)}
	for _, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category name required")
		}
		for _, m := range cat.Metrics {
			if prev, ok := c.index[m]; ok {
				return nil, fmt.Errorf("metric %q listed in both %s and %s", m, prev, cat.Name)
			}
			c.index[m] = cat.Name
		}
		c.categories = append(c.categories, Category{Name: cat.Name, Metrics: slices.Clone(cat.Metrics)})
	}
	return c, nil
}

func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = Category{Name: cat.Name, Metrics: slices.Clone(cat.Metrics)}
	}
	return out
}

func (c *Catalog) AllMetricNames() map[string]struct{} {
	names := make(map[string]struct{}, len(c.index))
	for name := range c.index {
		names[name] = struct{}{}
	}
	return names
}

// CategoryOf returns the category that lists metric.
func (c *Catalog) CategoryOf(metric string) (string, bool) {
	cat, ok := c.index[metric]
	return cat, ok
}

func (c *Catalog) Len() int { return len(c.index) }

var reference = []Category{
	{Name: Performance, Metrics: []string{
		"Page Load Speed (LCP)",
		"First Contentful Paint (FCP)",
		"Total Blocking Time (TBT)",
		"Cumulative Layout Shift (CLS)",
		"Time to Interactive (TTI)",
		"Server Response Time (TTFB)",
		"Image Optimization Status",
		"Render Blocking Resources",
		"Gzip/Brotli Compression Status",
		"Caching Policy Check",
		"Network Payload Size",
		"JavaScript Execution Time",
	}},
	{Name: Security, Metrics: []string{
		"HTTPS Protocol Enforcement",
		"Content Security Policy (CSP) Check",
		"Cross-Site Scripting (XSS) Vulnerability",
		"Secure Password Hashing Used",
		"HSTS Header Implementation",
		"CORS Policy Status",
		"OWASP Guidelines Adherence",
		"Software Dependencies Check",
		"Rate Limiting Implemented",
		"SQL Injection Vulnerability",
	}},
	{Name: Accessibility, Metrics: []string{
		"WCAG 2.1 Compliance Level",
		"Mobile Responsiveness Score",
		"Alt Text on Images",
		"Contrast Ratio Check",
		"Keyboard Navigation Usability",
		"Semantic HTML Usage",
		"ARIA Attributes Check",
	}},
	{Name: UsabilitySEO, Metrics: []string{
		"SEO Meta Tags Presence",
		"Mobile Viewport Configuration",
		"Broken Links Check",
		"Sitemap and Robots.txt Status",
		"URL Structure Optimization",
		"Readability Score",
		"User Experience (UX) Flow Score",
		"International Standard Adherence (ISO 25010)",
	}},
}

// Default returns the 37-metric reference catalog.
func Default() *Catalog {
	c, err := New(reference...)
	if err != nil {
		panic(err)
	}
	return c
}
