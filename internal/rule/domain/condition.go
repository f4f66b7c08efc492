package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultTelemetryWindow applies when a telemetry condition omits duration_minutes.
const DefaultTelemetryWindow = 5 * time.Minute

// Condition is implemented only by TelemetryCondition and OfflineCondition.
type Condition interface {
	Type() RuleType
	condition()
}

type Operator string

const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

func (o Operator) Valid() bool {
	switch o {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual, OpEqual, OpNotEqual:
		return true
	}
	return false
}

// Compare applies the operator as `latest <op> threshold`.
func (o Operator) Compare(latest, threshold float64) (bool, error) {
	switch o {
	case OpGreater:
		return latest > threshold, nil
	case OpGreaterEqual:
		return latest >= threshold, nil
	case OpLess:
		return latest < threshold, nil
	case OpLessEqual:
		return latest <= threshold, nil
	case OpEqual:
		return latest == threshold, nil
	case OpNotEqual:
		return latest != threshold, nil
	}
	return false, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, string(o))
}

type TelemetryCondition struct {
	Metric          string   `json:"metric"`
	Operator        Operator `json:"operator"`
	Value           float64  `json:"value"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
}

func (TelemetryCondition) Type() RuleType { return RuleTypeTelemetry }
func (TelemetryCondition) condition()     {}

// Window is the trailing lookback for readings.
func (c TelemetryCondition) Window() time.Duration {
	if c.DurationMinutes <= 0 {
		return DefaultTelemetryWindow
	}
	return time.Duration(c.DurationMinutes) * time.Minute
}

type OfflineCondition struct {
	OfflineMinutes   int     `json:"offline_minutes"`
	GracePeriodHours float64 `json:"grace_period_hours,omitempty"`
}

func (OfflineCondition) Type() RuleType { return RuleTypeOffline }
func (OfflineCondition) condition()     {}

func (c OfflineCondition) OfflineAfter() time.Duration {
	return time.Duration(c.OfflineMinutes) * time.Minute
}

// GracePeriod reports the onboarding grace window, if one is configured.
func (c OfflineCondition) GracePeriod() (time.Duration, bool) {
	if c.GracePeriodHours <= 0 {
		return 0, false
	}
	return time.Duration(c.GracePeriodHours * float64(time.Hour)), true
}

type telemetryConditionRow struct {
	Metric          string   `json:"metric"`
	Operator        Operator `json:"operator"`
	Value           *float64 `json:"value"`
	DurationMinutes *int     `json:"duration_minutes"`
}

type offlineConditionRow struct {
	OfflineMinutes   *int     `json:"offline_minutes"`
	GracePeriodHours *float64 `json:"grace_period_hours"`
}

// DecodeCondition builds the typed condition for a stored rule.
func DecodeCondition(ruleType RuleType, raw []byte) (Condition, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: condition is empty", ErrInvalidCondition)
	}

	switch ruleType {
	case RuleTypeTelemetry:
		var row telemetryConditionRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
		}
		metric := strings.TrimSpace(row.Metric)
		if metric == "" {
			return nil, fmt.Errorf("%w: metric is required", ErrInvalidCondition)
		}
		if !row.Operator.Valid() {
			return nil, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, string(row.Operator))
		}
		if row.Value == nil {
			return nil, fmt.Errorf("%w: value is required", ErrInvalidCondition)
		}
		cond := TelemetryCondition{Metric: metric, Operator: row.Operator, Value: *row.Value}
		if row.DurationMinutes != nil {
			if *row.DurationMinutes < 0 {
				return nil, fmt.Errorf("%w: duration_minutes must not be negative", ErrInvalidCondition)
			}
			cond.DurationMinutes = *row.DurationMinutes
		}
		return cond, nil
	case RuleTypeOffline:
		var row offlineConditionRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
		}
		if row.OfflineMinutes == nil || *row.OfflineMinutes <= 0 {
			return nil, fmt.Errorf("%w: offline_minutes must be positive", ErrInvalidCondition)
		}
		cond := OfflineCondition{OfflineMinutes: *row.OfflineMinutes}
		if row.GracePeriodHours != nil {
			if *row.GracePeriodHours < 0 {
				return nil, fmt.Errorf("%w: grace_period_hours must not be negative", ErrInvalidCondition)
			}
			cond.GracePeriodHours = *row.GracePeriodHours
		}
		return cond, nil
	}
	return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidCondition, string(ruleType))
}
