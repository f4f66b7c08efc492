package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorCompare(t *testing.T) {
	cases := []struct {
		op        Operator
		latest    float64
		threshold float64
		want      bool
	}{
		{OpGreater, 85, 80, true},
		{OpGreater, 80, 80, false},
		{OpGreaterEqual, 80, 80, true},
		{OpLess, 10, 20, true},
		{OpLessEqual, 20, 20, true},
		{OpEqual, 0, 0, true},
		{OpNotEqual, 1, 0, true},
		{OpNotEqual, 0, 0, false},
	}
	for _, tc := range cases {
		got, err := tc.op.Compare(tc.latest, tc.threshold)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%v %s %v", tc.latest, tc.op, tc.threshold)
	}

	_, err := Operator("~").Compare(1, 1)
	require.ErrorIs(t, err, ErrInvalidCondition)
}

func TestDecodeTelemetryCondition(t *testing.T) {
	cond, err := DecodeCondition(RuleTypeTelemetry, []byte(`{"metric":"temperature","operator":">","value":80,"duration_minutes":10}`))
	require.NoError(t, err)

	tc, ok := cond.(TelemetryCondition)
	require.True(t, ok)
	assert.Equal(t, "temperature", tc.Metric)
	assert.Equal(t, OpGreater, tc.Operator)
	assert.Equal(t, 80.0, tc.Value)
	assert.Equal(t, 10*time.Minute, tc.Window())
}

func TestTelemetryWindowDefaults(t *testing.T) {
	cond, err := DecodeCondition(RuleTypeTelemetry, []byte(`{"metric":"humidity","operator":"<","value":0}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultTelemetryWindow, cond.(TelemetryCondition).Window())
}

func TestDecodeOfflineCondition(t *testing.T) {
	cond, err := DecodeCondition(RuleTypeOffline, []byte(`{"offline_minutes":30,"grace_period_hours":2}`))
	require.NoError(t, err)

	oc := cond.(OfflineCondition)
	assert.Equal(t, 30*time.Minute, oc.OfflineAfter())
	grace, ok := oc.GracePeriod()
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, grace)

	cond, err = DecodeCondition(RuleTypeOffline, []byte(`{"offline_minutes":15}`))
	require.NoError(t, err)
	_, ok = cond.(OfflineCondition).GracePeriod()
	assert.False(t, ok)
}

func TestDecodeConditionRejectsMalformed(t *testing.T) {
	cases := []struct {
		name     string
		ruleType RuleType
		raw      string
	}{
		{"empty", RuleTypeTelemetry, ``},
		{"null", RuleTypeOffline, `null`},
		{"missing metric", RuleTypeTelemetry, `{"operator":">","value":1}`},
		{"bad operator", RuleTypeTelemetry, `{"metric":"temperature","operator":"=>","value":1}`},
		{"missing value", RuleTypeTelemetry, `{"metric":"temperature","operator":">"}`},
		{"negative window", RuleTypeTelemetry, `{"metric":"temperature","operator":">","value":1,"duration_minutes":-1}`},
		{"missing offline minutes", RuleTypeOffline, `{"grace_period_hours":1}`},
		{"negative grace", RuleTypeOffline, `{"offline_minutes":5,"grace_period_hours":-1}`},
		{"unknown type", RuleType("geofence"), `{}`},
		{"not json", RuleTypeOffline, `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCondition(tc.ruleType, []byte(tc.raw))
			require.ErrorIs(t, err, ErrInvalidCondition)
		})
	}
}
