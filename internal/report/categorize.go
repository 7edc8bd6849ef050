package report

import (
	"github.com/MimoJanra/AuditPulse/internal/catalog"
	"github.com/MimoJanra/AuditPulse/internal/models"
)

type MetricRow struct {
	Name   string             `json:"name" example:"Page Load Speed (LCP)"`
	Value  models.MetricValue `json:"value"`
	Health Health             `json:"health" example:"Good"`
}

type CategoryView struct {
	Name    string      `json:"name" example:"Performance"`
	Metrics []MetricRow `json:"metrics"`
}

// Categorized keeps catalog order for rendering.
type Categorized []CategoryView

// Categorize groups metrics by catalog category. Catalog metrics absent from
// metrics are filled with the N/A sentinel; keys unknown to the catalog are dropped.
func Categorize(cat *catalog.Catalog, metrics models.MetricSet) Categorized {
	cats := cat.Categories()
	out := make(Categorized, 0, len(cats))
	for _, c := range cats {
		view := CategoryView{Name: c.Name, Metrics: make([]MetricRow, 0, len(c.Metrics))}
		for _, name := range c.Metrics {
			v, ok := metrics[name]
			if !ok {
				v = models.NotApplicable()
			}
			view.Metrics = append(view.Metrics, MetricRow{Name: name, Value: v, Health: DeriveHealth(v)})
		}
		out = append(out, view)
	}
	return out
}

func (c Categorized) AsMap() map[string]map[string]models.MetricValue {
	out := make(map[string]map[string]models.MetricValue, len(c))
	for _, view := range c {
		m := make(map[string]models.MetricValue, len(view.Metrics))
		for _, row := range view.Metrics {
			m[row.Name] = row.Value
		}
		out[view.Name] = m
	}
	return out
}

func (c Categorized) Value(category, metric string) (models.MetricValue, bool) {
	for _, view := range c {
		if view.Name != category {
			continue
		}
		for _, row := range view.Metrics {
			if row.Name == metric {
				return row.Value, true
			}
		}
	}
	return models.MetricValue{}, false
}
