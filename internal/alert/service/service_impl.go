package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/fleetwatch/internal/alert/domain"
	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	"github.com/smallbiznis/fleetwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// criticalThreshold is the value above which telemetry alerts are critical.
const criticalThreshold = 80

type Params struct {
	fx.In

	Sink         alertdomain.Sink
	Log          *zap.Logger
	GenID        *snowflake.Node
	SweepMetrics *obsmetrics.SweepMetrics `optional:"true"`
	Metrics      *obsmetrics.Metrics      `optional:"true"`
}

type Service struct {
	sink         alertdomain.Sink
	log          *zap.Logger
	genID        *snowflake.Node
	sweepMetrics *obsmetrics.SweepMetrics
	metrics      *obsmetrics.Metrics
}

func New(p Params) alertdomain.Service {
	return &Service{
		sink:         p.Sink,
		log:          p.Log.Named("alert.service"),
		genID:        p.GenID,
		sweepMetrics: p.SweepMetrics,
		metrics:      p.Metrics,
	}
}

func (s *Service) Materialize(ctx context.Context, req alertdomain.MaterializeRequest) ([]alertdomain.Alert, error) {
	alerts := s.build(req)
	if len(alerts) == 0 {
		return nil, nil
	}

	category := string(alerts[0].Category)
	if err := s.sink.InsertBatch(ctx, alerts); err != nil {
		logger.WithContext(ctx, s.log).Error("alert.persist.failed",
			zap.String("rule_id", req.Rule.ID.String()),
			zap.Int("alerts", len(alerts)),
			zap.Error(err),
		)
		s.sweepMetrics.AddAlertsFailed(err, len(alerts))
		return alerts, fmt.Errorf("%w: rule %s: %w", alertdomain.ErrPersist, req.Rule.ID, err)
	}

	s.sweepMetrics.AddAlertsPersisted(category, len(alerts))
	s.metrics.RecordAlertsCreated(ctx, category, len(alerts))
	return alerts, nil
}

func (s *Service) build(req alertdomain.MaterializeRequest) []alertdomain.Alert {
	if len(req.Devices) == 0 {
		return nil
	}

	title, description, category := describe(req.Rule, req.Condition)
	createdAt := req.TriggeredAt.UTC()

	alerts := make([]alertdomain.Alert, 0, len(req.Devices))
	for _, device := range req.Devices {
		alerts = append(alerts, alertdomain.Alert{
			ID:          s.genID.Generate(),
			OrgID:       req.Rule.OrgID,
			DeviceID:    device.ID,
			Title:       title(device),
			Description: description,
			Severity:    severityFor(req.Condition, req.Observed, device.ID),
			Category:    category,
			AlertType:   string(req.Rule.RuleType),
			Source:      alertdomain.SourceRule,
			Metadata: map[string]any{
				"rule_id":   req.Rule.ID.String(),
				"rule_name": req.Rule.Name,
			},
			CreatedAt: createdAt,
		})
	}
	return alerts
}

func describe(rule ruledomain.Rule, cond ruledomain.Condition) (func(devicedomain.Device) string, string, alertdomain.Category) {
	switch c := cond.(type) {
	case ruledomain.TelemetryCondition:
		return func(d devicedomain.Device) string { return rule.Name + ": " + d.Name },
			fmt.Sprintf("%s %s %s condition met", c.Metric, c.Operator, formatNumber(c.Value)),
			alertdomain.CategoryEnvironmental
	case ruledomain.OfflineCondition:
		return func(d devicedomain.Device) string { return "Device Offline: " + d.Name },
			fmt.Sprintf("Device has been offline for %d minutes", c.OfflineMinutes),
			alertdomain.CategoryConnectivity
	}
	return func(d devicedomain.Device) string { return rule.Name + ": " + d.Name }, "", alertdomain.CategorySystem
}

// severityFor applies the fixed 80 heuristic to the condition value and to the reading that
// tripped it. Offline conditions carry no value and are always high.
func severityFor(cond ruledomain.Condition, observed map[string]float64, deviceID string) alertdomain.Severity {
	c, ok := cond.(ruledomain.TelemetryCondition)
	if !ok {
		return alertdomain.SeverityHigh
	}
	if c.Value > criticalThreshold {
		return alertdomain.SeverityCritical
	}
	if v, ok := observed[deviceID]; ok && v > criticalThreshold {
		return alertdomain.SeverityCritical
	}
	return alertdomain.SeverityHigh
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

