package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricValueString(t *testing.T) {
	assert.Equal(t, "2.31s", Numeric(2.31).String())
	assert.Equal(t, "1.00s", Numeric(1).String())
	assert.Equal(t, "Passed", StatusValue(StatusPassed).String())
	assert.Equal(t, "Needs Improvement", Qualitative(QualityNeedsImprovement).String())
	assert.Equal(t, "N/A", NotApplicable().String())
}

func TestMetricValueDecodesLegacyStrings(t *testing.T) {
	var set MetricSet
	err := json.Unmarshal([]byte(`{
		"Page Load Speed (LCP)": "3.42s",
		"HSTS Header Implementation": "Failed/Needs Review",
		"Alt Text on Images": "Passed",
		"Readability Score": "Poor"
	}`), &set)
	require.NoError(t, err)

	assert.Equal(t, Numeric(3.42), set["Page Load Speed (LCP)"])
	assert.Equal(t, StatusValue(StatusFailed), set["HSTS Header Implementation"])
	assert.Equal(t, StatusValue(StatusPassed), set["Alt Text on Images"])
	assert.Equal(t, Qualitative(QualityPoor), set["Readability Score"])
}

func TestMetricValueJSONCarriesKind(t *testing.T) {
	b, err := json.Marshal(Numeric(1.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"numeric","seconds":1.5,"display":"1.50s"}`, string(b))

	var back MetricValue
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Numeric(1.5), back)
}

func TestMetricValueRejectsGarbage(t *testing.T) {
	var v MetricValue
	assert.Error(t, json.Unmarshal([]byte(`"fast-ish"`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"status","label":"Maybe"}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"numeric"}`), &v))
}

func TestScheduleState(t *testing.T) {
	target, addr, blank := "https://a.example", "a@x.com", " "

	s := Subscriber{}
	assert.Equal(t, Unscheduled, s.ScheduleState())

	s.ScheduledTargetURL, s.ScheduledDeliveryAddress = &target, &addr
	assert.Equal(t, Scheduled, s.ScheduleState())

	s.ScheduledDeliveryAddress = &blank
	assert.Equal(t, Unscheduled, s.ScheduleState())
}
