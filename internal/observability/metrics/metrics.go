package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics mirrors the sweep outcome counters to OTLP. A nil *Metrics records nothing.
type Metrics struct {
	ruleOutcomes  metric.Int64Counter
	alertsCreated metric.Int64Counter
	actions       metric.Int64Counter
	sweepDuration metric.Float64Histogram
}

// New registers the sweep instruments on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fleetwatch"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.ruleOutcomes, err = meter.Int64Counter("fleetwatch.rule.outcomes",
		metric.WithDescription("Rules finished per sweep by outcome")); err != nil {
		return nil, err
	}
	if m.alertsCreated, err = meter.Int64Counter("fleetwatch.alerts.created",
		metric.WithDescription("Alerts persisted by category")); err != nil {
		return nil, err
	}
	if m.actions, err = meter.Int64Counter("fleetwatch.actions",
		metric.WithDescription("Notification actions by kind and status")); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = meter.Float64Histogram("fleetwatch.sweep.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of one sweep")); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRuleOutcome counts one rule finishing a sweep as triggered, evaluated, skipped or error.
func (m *Metrics) RecordRuleOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ruleOutcomes.Add(ctx, 1, withLabels(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordAlertsCreated(ctx context.Context, category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alertsCreated.Add(ctx, int64(count), withLabels(attribute.String("category", category)))
}

func (m *Metrics) RecordAction(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.actions.Add(ctx, 1, withLabels(attribute.String("kind", kind), attribute.String("status", status)))
}

func (m *Metrics) RecordSweepDuration(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Record(ctx, max(d, 0).Seconds())
}

// Rule ids, device ids and recipients never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":  {},
	"category": {},
	"kind":     {},
	"status":   {},
	"reason":   {},
	"route":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; ok {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}

func withLabels(attrs ...attribute.KeyValue) metric.AddOption {
	for i := range attrs {
		attrs[i] = attribute.String(string(attrs[i].Key), strings.TrimSpace(attrs[i].Value.AsString()))
	}
	return metric.WithAttributes(FilterAttributes(attrs...)...)
}
