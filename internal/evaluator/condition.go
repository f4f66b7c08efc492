package evaluator

import (
	"context"
	"fmt"
	"time"

	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
)

// Evaluation lists the devices that satisfied a condition. Observed holds the
// deciding telemetry value per device id and is empty for offline conditions.
type Evaluation struct {
	Devices  []devicedomain.Device
	Observed map[string]float64
}

// ConditionEvaluator decides which devices currently satisfy a rule condition.
type ConditionEvaluator struct {
	telemetry  telemetrydomain.Source
	normalizer *normalizer.Normalizer
}

// NewConditionEvaluator builds an evaluator. A nil normalizer limits telemetry rules to typed readings.
func NewConditionEvaluator(telemetry telemetrydomain.Source, n *normalizer.Normalizer) *ConditionEvaluator {
	return &ConditionEvaluator{telemetry: telemetry, normalizer: n}
}

func (c *ConditionEvaluator) Evaluate(ctx context.Context, cond ruledomain.Condition, devices []devicedomain.Device, now time.Time) (Evaluation, error) {
	switch cond := cond.(type) {
	case ruledomain.TelemetryCondition:
		return c.evaluateTelemetry(ctx, cond, devices, now)
	case ruledomain.OfflineCondition:
		return Evaluation{Devices: evaluateOffline(cond, devices, now)}, nil
	}
	return Evaluation{}, fmt.Errorf("%w: unsupported condition %T", ruledomain.ErrInvalidCondition, cond)
}

func (c *ConditionEvaluator) evaluateTelemetry(ctx context.Context, cond ruledomain.TelemetryCondition, devices []devicedomain.Device, now time.Time) (Evaluation, error) {
	since := now.Add(-cond.Window())
	result := Evaluation{Devices: make([]devicedomain.Device, 0), Observed: map[string]float64{}}
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return Evaluation{}, err
		}
		latest, ok, err := c.latest(ctx, device.ID, cond.Metric, since)
		if err != nil {
			return Evaluation{}, fmt.Errorf("device %s: %w", device.ID, err)
		}
		if !ok {
			continue
		}
		met, err := cond.Operator.Compare(latest, cond.Value)
		if err != nil {
			return Evaluation{}, err
		}
		if met {
			result.Devices = append(result.Devices, device)
			result.Observed[device.ID] = latest
		}
	}
	return result, nil
}

type sample struct {
	value float64
	at    time.Time
}

// latest returns the newest in-window value across typed readings and raw payloads.
// Typed readings win timestamp ties.
func (c *ConditionEvaluator) latest(ctx context.Context, deviceID, metric string, since time.Time) (float64, bool, error) {
	readings, err := c.telemetry.Readings(ctx, deviceID, metric, since)
	if err != nil {
		return 0, false, err
	}

	var best sample
	found := false
	for _, r := range readings {
		if r.Timestamp.Before(since) {
			continue
		}
		if !found || r.Timestamp.After(best.at) {
			best, found = sample{value: r.Value, at: r.Timestamp}, true
		}
	}

	if c.normalizer == nil {
		return best.value, found, nil
	}

	payloads, err := c.telemetry.Payloads(ctx, deviceID, since)
	if err != nil {
		return 0, false, err
	}
	for _, p := range payloads {
		if p.ReceivedAt.Before(since) {
			continue
		}
		if found && !p.ReceivedAt.After(best.at) {
			continue
		}
		value, ok := c.normalizer.Normalize(p.Fields(), metric)
		if !ok {
			continue
		}
		best, found = sample{value: value, at: p.ReceivedAt}, true
	}
	return best.value, found, nil
}

func evaluateOffline(cond ruledomain.OfflineCondition, devices []devicedomain.Device, now time.Time) []devicedomain.Device {
	threshold := now.Add(-cond.OfflineAfter())
	grace, hasGrace := cond.GracePeriod()
	graceCutoff := now.Add(-grace)

	triggered := make([]devicedomain.Device, 0)
	for _, device := range devices {
		// Devices still inside their onboarding window are exempt.
		if hasGrace && !device.CreatedAt.IsZero() && device.CreatedAt.After(graceCutoff) {
			continue
		}
		if device.LastSeenAt != nil {
			if device.LastSeenAt.Before(threshold) {
				triggered = append(triggered, device)
			}
			continue
		}
		if device.Status == devicedomain.StatusOffline {
			triggered = append(triggered, device)
		}
	}
	return triggered
}
