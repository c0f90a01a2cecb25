package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryScenario(t *testing.T) {
	payload, err := ParsePayload([]byte(scenarioPayload))
	require.NoError(t, err)

	assert.Equal(t, []string{"e1"}, experimentNames(ExperimentsFrom(payload, true)))
	assert.Equal(t, []string{"e2"}, experimentNames(ExperimentsFrom(payload, false)))
	assert.Equal(t, []string{"f1"}, featureNames(FeaturesFrom(payload, true)))
	assert.Empty(t, FeaturesFrom(payload, false))
}

func TestFactorySkipsMalformedEntries(t *testing.T) {
	payload, err := ParsePayload([]byte(`{
		"good_exp":      {"isActive": true, "values": {"cohort": "A", "color": "red"}},
		"good_feature":  {"isActive": true, "values": {"limit": 3}},
		"no_values":     {"isActive": true},
		"null_values":   {"isActive": true, "values": null},
		"list_values":   {"isActive": true, "values": [1, 2]},
		"numeric_cohort":{"isActive": true, "values": {"cohort": 7}},
		"no_is_active":  {"values": {"cohort": "A"}},
		"string_active": {"isActive": "true", "values": {}},
		"not_a_map":     42
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"good_exp"}, experimentNames(ExperimentsFrom(payload, true)))
	assert.Equal(t, []string{"good_feature"}, featureNames(FeaturesFrom(payload, true)))
	assert.Empty(t, ExperimentsFrom(payload, false), "missing isActive matches neither filter")
	assert.Empty(t, FeaturesFrom(payload, false))

	exps := ExperimentsFrom(payload, true)
	color, ok := exps[0].Values().StringFor("color")
	assert.True(t, ok)
	assert.Equal(t, "red", color)
}

func TestParsePayloadRejectsNonObjects(t *testing.T) {
	for _, input := range []string{"", "[]", "42", `"x"`, "{", "null"} {
		_, err := ParsePayload([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidPayload, input)
	}

	payload, err := ParsePayload([]byte("  {}  "))
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestIngestReport(t *testing.T) {
	sw := New()
	report, err := sw.ApplyJSONWithTrace(context.Background(), []byte(`{
		"e1": {"isActive": true, "values": {"cohort": "A"}},
		"f2": {"isActive": false, "values": {}},
		"bad": {"isActive": true}
	}`), SourceManual)
	require.NoError(t, err)

	assert.Equal(t, SourceManual, report.Source)
	assert.Equal(t, 3, report.Entries)
	assert.Equal(t, []string{"e1"}, report.Accepted["experiments"])
	assert.Equal(t, []string{"f2"}, report.Accepted["inactive_features"])
	assert.Equal(t, SetCounts{Experiments: 1, InactiveFeatures: 1}, report.Counts)

	require.NotEmpty(t, report.Skipped)
	for _, skipped := range report.Skipped {
		assert.Equal(t, "bad", skipped.Entity)
		assert.Equal(t, ReasonMissingValues, skipped.Reason)
	}
}
