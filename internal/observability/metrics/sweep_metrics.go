package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	"github.com/smallbiznis/fleetwatch/pkg/db"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBUnavailable        = "db_unavailable"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonInvalidRule          = "invalid_rule"
	ReasonDecode               = "decode"
	ReasonUnknown              = "unknown"
)

const (
	TriggerScheduler = "scheduler"
	TriggerHTTP      = "http"
	TriggerCLI       = "cli"
)

const (
	ActionStatusOK     = "ok"
	ActionStatusFailed = "failed"
)

// SweepMetrics captures rule sweep health for alerting on the alerter.
type SweepMetrics struct {
	runs            *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	timeouts        *prometheus.CounterVec
	runErrors       *prometheus.CounterVec
	lockContended   *prometheus.CounterVec
	ruleOutcomes    *prometheus.CounterVec
	ruleErrors      *prometheus.CounterVec
	alertsPersisted *prometheus.CounterVec
	alertsFailed    *prometheus.CounterVec
	actions         *prometheus.CounterVec
	runLoopLag      prometheus.Observer
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the singleton sweep metrics registry.
func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

// SweepWithConfig returns the singleton sweep metrics registry using config labels.
func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest resets the sweep metrics singleton for tests.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fleetwatch"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SweepMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_runs_total",
			Help:        "Rule sweeps started by trigger.",
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "fleetwatch_sweep_duration_seconds",
			Help:        "Wall time of one full rule sweep.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_timeouts_total",
			Help:        "Sweeps cut short by their deadline.",
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		runErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_errors_total",
			Help:        "Sweeps that could not run to completion, by reason.",
			ConstLabels: constLabels,
		}, []string{"trigger", "reason"}),
		lockContended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_lock_contended_total",
			Help:        "Sweeps skipped because another sweep held the lock.",
			ConstLabels: constLabels,
		}, []string{"trigger"}),
		ruleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_rule_outcomes_total",
			Help:        "Rules processed by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		ruleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_rule_errors_total",
			Help:        "Rule evaluation failures by stage and reason.",
			ConstLabels: constLabels,
		}, []string{"stage", "reason"}),
		alertsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_alerts_persisted_total",
			Help:        "Alerts written to the alert sink by category.",
			ConstLabels: constLabels,
		}, []string{"category"}),
		alertsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_alerts_failed_total",
			Help:        "Alerts lost to sink failures.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "fleetwatch_sweep_actions_total",
			Help:        "Notification actions dispatched by kind and status.",
			ConstLabels: constLabels,
		}, []string{"kind", "status"}),
	}
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "fleetwatch_sweep_runloop_lag_seconds",
		Help:        "Scheduler run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})
	m.runLoopLag = lag

	registerer.MustRegister(
		m.runs,
		m.duration,
		m.timeouts,
		m.runErrors,
		m.lockContended,
		m.ruleOutcomes,
		m.ruleErrors,
		m.alertsPersisted,
		m.alertsFailed,
		m.actions,
		lag,
	)
	return m
}

func (m *SweepMetrics) IncRun(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger).Inc()
}

func (m *SweepMetrics) ObserveDuration(trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (m *SweepMetrics) IncTimeout(trigger string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(trigger).Inc()
}

func (m *SweepMetrics) IncRunError(trigger string, err error) {
	if m == nil || err == nil {
		return
	}
	m.runErrors.WithLabelValues(trigger, ClassifyErrorReason(err)).Inc()
}

func (m *SweepMetrics) IncLockContended(trigger string) {
	if m == nil {
		return
	}
	m.lockContended.WithLabelValues(trigger).Inc()
}

func (m *SweepMetrics) IncRuleOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ruleOutcomes.WithLabelValues(outcome).Inc()
}

func (m *SweepMetrics) IncRuleError(stage string, err error) {
	if m == nil || err == nil {
		return
	}
	m.ruleErrors.WithLabelValues(stage, ClassifyErrorReason(err)).Inc()
}

func (m *SweepMetrics) AddAlertsPersisted(category string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alertsPersisted.WithLabelValues(category).Add(float64(count))
}

func (m *SweepMetrics) AddAlertsFailed(err error, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.alertsFailed.WithLabelValues(ClassifyErrorReason(err)).Add(float64(count))
}

func (m *SweepMetrics) IncAction(kind, status string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(kind, status).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *SweepMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil || m.runLoopLag == nil {
		return
	}
	m.runLoopLag.Observe(max(d, 0).Seconds())
}

// ClassifyErrorReason maps errors to low-cardinality reasons.
func ClassifyErrorReason(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ReasonDeadlineExceeded
	case errors.Is(err, ruledomain.ErrInvalidCondition) || errors.Is(err, ruledomain.ErrInvalidAction) || errors.Is(err, ruledomain.ErrInvalidScope):
		return ReasonInvalidRule
	case db.IsUnavailableErr(err):
		return ReasonDBUnavailable
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	case db.IsDuplicateKeyErr(err):
		return ReasonUniqueViolation
	case isDBError(err):
		return ReasonDB
	case isDecodeError(err):
		return ReasonDecode
	}
	return ReasonUnknown
}

// IsRetryable reports whether the next sweep may succeed where this one failed.
func IsRetryable(err error) bool {
	switch ClassifyErrorReason(err) {
	case ReasonDeadlineExceeded, ReasonDBUnavailable, ReasonDBLockTimeout, ReasonSerializationFailure, ReasonDB:
		return true
	}
	return false
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrInvalidValue) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
