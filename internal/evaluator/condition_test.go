package evaluator

import (
	"context"
	"testing"
	"time"

	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConditionEvaluator(source telemetrydomain.Source) *ConditionEvaluator {
	return NewConditionEvaluator(source, normalizer.New(normalizer.StaticSource(normalizer.DefaultCatalog())))
}

func TestTelemetryUsesNewestSampleAcrossSources(t *testing.T) {
	cond := ruledomain.TelemetryCondition{Metric: "temperature", Operator: ruledomain.OpGreater, Value: 80}
	devices := []devicedomain.Device{device("dev-a", 1, "A")}

	cases := []struct {
		name      string
		readings  []telemetrydomain.Reading
		payloads  []telemetrydomain.Payload
		triggered bool
		observed  float64
	}{
		{
			name:      "payload newer than reading",
			readings:  []telemetrydomain.Reading{reading("dev-a", "temperature", 70, sweepNow.Add(-3*time.Minute))},
			payloads:  []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"temperature": 90}, ReceivedAt: sweepNow.Add(-time.Minute)}},
			triggered: true,
			observed:  90,
		},
		{
			name:     "reading newer than payload",
			readings: []telemetrydomain.Reading{reading("dev-a", "temperature", 70, sweepNow.Add(-time.Minute))},
			payloads: []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"temperature": 90}, ReceivedAt: sweepNow.Add(-3 * time.Minute)}},
		},
		{
			name:     "reading wins a tie",
			readings: []telemetrydomain.Reading{reading("dev-a", "temperature", 70, sweepNow.Add(-time.Minute))},
			payloads: []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"temperature": 90}, ReceivedAt: sweepNow.Add(-time.Minute)}},
		},
		{
			name:      "type coded payload",
			payloads:  []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"type": "1", "value": 81.5}, ReceivedAt: sweepNow.Add(-time.Minute)}},
			triggered: true,
			observed:  81.5,
		},
		{
			name:     "payload without the metric is ignored",
			readings: []telemetrydomain.Reading{reading("dev-a", "temperature", 70, sweepNow.Add(-3*time.Minute))},
			payloads: []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"humidity": 99}, ReceivedAt: sweepNow.Add(-time.Minute)}},
		},
		{
			name:     "out of window",
			readings: []telemetrydomain.Reading{reading("dev-a", "temperature", 99, sweepNow.Add(-6*time.Minute))},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eval := newTestConditionEvaluator(&memTelemetry{readings: tc.readings, payloads: tc.payloads})

			got, err := eval.Evaluate(context.Background(), cond, devices, sweepNow)
			require.NoError(t, err)
			if !tc.triggered {
				assert.Empty(t, got.Devices)
				return
			}
			require.Len(t, got.Devices, 1)
			assert.Equal(t, tc.observed, got.Observed["dev-a"])
		})
	}
}

func TestTelemetryWindowFollowsDuration(t *testing.T) {
	cond := ruledomain.TelemetryCondition{Metric: "co2", Operator: ruledomain.OpGreaterEqual, Value: 1000, DurationMinutes: 15}
	source := &memTelemetry{readings: []telemetrydomain.Reading{reading("dev-a", "co2", 1200, sweepNow.Add(-10*time.Minute))}}

	got, err := NewConditionEvaluator(source, nil).Evaluate(context.Background(), cond, []devicedomain.Device{device("dev-a", 1, "A")}, sweepNow)
	require.NoError(t, err)
	assert.Len(t, got.Devices, 1)
}

func TestTelemetryNilNormalizerIgnoresPayloads(t *testing.T) {
	cond := ruledomain.TelemetryCondition{Metric: "temperature", Operator: ruledomain.OpGreater, Value: 80}
	source := &memTelemetry{payloads: []telemetrydomain.Payload{{DeviceID: "dev-a", Telemetry: map[string]any{"temperature": 90}, ReceivedAt: sweepNow}}}

	got, err := NewConditionEvaluator(source, nil).Evaluate(context.Background(), cond, []devicedomain.Device{device("dev-a", 1, "A")}, sweepNow)
	require.NoError(t, err)
	assert.Empty(t, got.Devices)
}

func TestTelemetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cond := ruledomain.TelemetryCondition{Metric: "temperature", Operator: ruledomain.OpGreater, Value: 80}

	_, err := newTestConditionEvaluator(&memTelemetry{}).Evaluate(ctx, cond, []devicedomain.Device{device("dev-a", 1, "A")}, sweepNow)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOfflineCondition(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		ts := sweepNow.Add(d)
		return &ts
	}
	old := sweepNow.Add(-48 * time.Hour)

	cases := []struct {
		name      string
		cond      ruledomain.OfflineCondition
		device    devicedomain.Device
		triggered bool
	}{
		{"seen past threshold", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{LastSeenAt: at(-31 * time.Minute), CreatedAt: old}, true},
		{"seen exactly at threshold", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{LastSeenAt: at(-30 * time.Minute), CreatedAt: old}, false},
		{"seen recently", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{LastSeenAt: at(-5 * time.Minute), CreatedAt: old}, false},
		{"never seen and offline", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{Status: devicedomain.StatusOffline, CreatedAt: old}, true},
		{"never seen and online", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{Status: devicedomain.StatusOnline, CreatedAt: old}, false},
		{"last seen beats stale status", ruledomain.OfflineCondition{OfflineMinutes: 30}, devicedomain.Device{Status: devicedomain.StatusOffline, LastSeenAt: at(-time.Minute), CreatedAt: old}, false},
		{"inside grace", ruledomain.OfflineCondition{OfflineMinutes: 30, GracePeriodHours: 2}, devicedomain.Device{Status: devicedomain.StatusOffline, CreatedAt: sweepNow.Add(-90 * time.Minute)}, false},
		{"past grace", ruledomain.OfflineCondition{OfflineMinutes: 30, GracePeriodHours: 2}, devicedomain.Device{LastSeenAt: at(-45 * time.Minute), CreatedAt: sweepNow.Add(-3 * time.Hour)}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.device.ID = "dev"
			got := evaluateOffline(tc.cond, []devicedomain.Device{tc.device}, sweepNow)
			assert.Equal(t, tc.triggered, len(got) == 1)
		})
	}
}
