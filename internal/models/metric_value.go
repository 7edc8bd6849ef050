package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ValueKind string

const (
	KindNumeric       ValueKind = "numeric"
	KindStatus        ValueKind = "status"
	KindQualitative   ValueKind = "qualitative"
	KindNotApplicable ValueKind = "n/a"
)

type Status string

const (
	StatusPassed  Status = "Passed"
	StatusWarning Status = "Warning"
	StatusFailed  Status = "Failed"
)

type Quality string

const (
	QualityExcellent        Quality = "Excellent"
	QualityGood             Quality = "Good"
	QualityNeedsImprovement Quality = "Needs Improvement"
	QualityPoor             Quality = "Poor"
)

const NotApplicableLabel = "N/A"

// MetricValue is one of Numeric seconds, a Status label, a Quality label or
// the NotApplicable sentinel. Kind selects which field is meaningful.
type MetricValue struct {
	Kind    ValueKind
	Seconds float64
	Status  Status
	Quality Quality
}

func Numeric(seconds float64) MetricValue { return MetricValue{Kind: KindNumeric, Seconds: seconds} }

func StatusValue(s Status) MetricValue { return MetricValue{Kind: KindStatus, Status: s} }

func Qualitative(q Quality) MetricValue { return MetricValue{Kind: KindQualitative, Quality: q} }

func NotApplicable() MetricValue { return MetricValue{Kind: KindNotApplicable} }

func (v MetricValue) String() string {
	switch v.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Seconds, 'f', 2, 64) + "s"
	case KindStatus:
		return string(v.Status)
	case KindQualitative:
		return string(v.Quality)
	default:
		return NotApplicableLabel
	}
}

type metricValueJSON struct {
	Kind    ValueKind `json:"kind"`
	Seconds *float64  `json:"seconds,omitempty"`
	Label   string    `json:"label,omitempty"`
	Display string    `json:"display"`
}

func (v MetricValue) MarshalJSON() ([]byte, error) {
	out := metricValueJSON{Kind: v.Kind, Display: v.String()}
	switch v.Kind {
	case KindNumeric:
		s := v.Seconds
		out.Seconds = &s
	case KindStatus:
		out.Label = string(v.Status)
	case KindQualitative:
		out.Label = string(v.Quality)
	case KindNotApplicable:
	default:
		return nil, fmt.Errorf("unknown metric value kind %q", v.Kind)
	}
	return json.Marshal(out)
}

func (v *MetricValue) UnmarshalJSON(data []byte) error {
	// rows written by the first release stored bare display strings
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, err := ParseMetricValue(raw)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	var in metricValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindNumeric:
		if in.Seconds == nil {
			return fmt.Errorf("numeric metric value without seconds")
		}
		*v = Numeric(*in.Seconds)
	case KindStatus:
		s, ok := parseStatus(in.Label)
		if !ok {
			return fmt.Errorf("unknown status label %q", in.Label)
		}
		*v = StatusValue(s)
	case KindQualitative:
		q, ok := parseQuality(in.Label)
		if !ok {
			return fmt.Errorf("unknown quality label %q", in.Label)
		}
		*v = Qualitative(q)
	case KindNotApplicable:
		*v = NotApplicable()
	default:
		return fmt.Errorf("unknown metric value kind %q", in.Kind)
	}
	return nil
}

// ParseMetricValue reads the display form produced by String.
func ParseMetricValue(raw string) (MetricValue, error) {
	raw = strings.TrimSpace(raw)
	if raw == NotApplicableLabel {
		return NotApplicable(), nil
	}
	if s, ok := parseStatus(raw); ok {
		return StatusValue(s), nil
	}
	if q, ok := parseQuality(raw); ok {
		return Qualitative(q), nil
	}
	if num, ok := strings.CutSuffix(raw, "s"); ok {
		if secs, err := strconv.ParseFloat(num, 64); err == nil {
			return Numeric(secs), nil
		}
	}
	return MetricValue{}, fmt.Errorf("unrecognized metric value %q", raw)
}

func parseStatus(label string) (Status, bool) {
	switch label {
	case string(StatusPassed):
		return StatusPassed, true
	case string(StatusWarning):
		return StatusWarning, true
	case string(StatusFailed), "Failed/Needs Review":
		return StatusFailed, true
	}
	return "", false
}

func parseQuality(label string) (Quality, bool) {
	switch Quality(label) {
	case QualityExcellent, QualityGood, QualityNeedsImprovement, QualityPoor:
		return Quality(label), true
	}
	return "", false
}
