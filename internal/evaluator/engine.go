package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/fleetwatch/internal/alert/domain"
	"github.com/smallbiznis/fleetwatch/internal/clock"
	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	notificationdomain "github.com/smallbiznis/fleetwatch/internal/notification/domain"
	obscontext "github.com/smallbiznis/fleetwatch/internal/observability/context"
	obslogger "github.com/smallbiznis/fleetwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"github.com/smallbiznis/fleetwatch/internal/observability/tracing"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "fleetwatch/evaluator"

// Sweeper runs one full pass over enabled rules.
type Sweeper interface {
	Sweep(ctx context.Context) (Summary, error)
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Rules        ruledomain.Source
	Devices      devicedomain.Store
	Telemetry    telemetrydomain.Source
	Normalizer   *normalizer.Normalizer `optional:"true"`
	Alerts       alertdomain.Service
	Dispatcher   notificationdomain.Dispatcher
	Clock        clock.Clock
	GenID        *snowflake.Node
	SweepMetrics *obsmetrics.SweepMetrics `optional:"true"`
	Metrics      *obsmetrics.Metrics      `optional:"true"`
}

// Engine evaluates rules sequentially so cooldown updates never race inside a sweep.
// Overlapping sweeps must be prevented by the caller.
type Engine struct {
	log          *zap.Logger
	rules        ruledomain.Source
	devices      devicedomain.Store
	conditions   *ConditionEvaluator
	cooldown     *CooldownTracker
	alerts       alertdomain.Service
	dispatcher   notificationdomain.Dispatcher
	clock        clock.Clock
	genID        *snowflake.Node
	sweepMetrics *obsmetrics.SweepMetrics
	metrics      *obsmetrics.Metrics
}

func New(p Params) (*Engine, error) {
	if p.Log == nil || p.Rules == nil || p.Devices == nil || p.Telemetry == nil || p.Alerts == nil || p.Dispatcher == nil || p.Clock == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	return &Engine{
		log:          p.Log.Named("evaluator"),
		rules:        p.Rules,
		devices:      p.Devices,
		conditions:   NewConditionEvaluator(p.Telemetry, p.Normalizer),
		cooldown:     NewCooldownTracker(p.Rules),
		alerts:       p.Alerts,
		dispatcher:   p.Dispatcher,
		clock:        p.Clock,
		genID:        p.GenID,
		sweepMetrics: p.SweepMetrics,
		metrics:      p.Metrics,
	}, nil
}

// Sweep evaluates every enabled rule once. Per-rule failures are counted in Summary.Errors.
// A failure to list rules is returned, and so is ctx ending between rules, together with
// the partial summary.
func (e *Engine) Sweep(ctx context.Context) (Summary, error) {
	orgID, err := orgFromContext(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{RunID: e.genID.Generate().String(), StartedAt: e.clock.Now()}
	ctx = obscontext.WithRunID(ctx, summary.RunID)
	ctx, _ = obscontext.EnsureCorrelationID(ctx)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "evaluator.sweep")
	defer span.End()

	log := obslogger.WithContext(ctx, e.log)
	log.Info("evaluator.sweep.start")

	rules, err := e.rules.ListEnabled(ctx, orgID)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "list rules failed")
		log.Error("evaluator.sweep.failed", zap.Error(err))
		return summary, fmt.Errorf("list enabled rules: %w", err)
	}

	var interrupted error
	processed := 0
	for _, rule := range rules {
		if interrupted = ctx.Err(); interrupted != nil {
			break
		}
		outcome := e.processRule(ctx, rule)
		summary.add(outcome)
		e.sweepMetrics.IncRuleOutcome(outcome)
		e.metrics.RecordRuleOutcome(ctx, outcome)
		processed++
	}

	summary.FinishedAt = e.clock.Now()
	e.metrics.RecordSweepDuration(ctx, summary.FinishedAt.Sub(summary.StartedAt))
	span.SetAttributes(
		attribute.Int("sweep.rules", len(rules)),
		attribute.Int("sweep.triggered", summary.Triggered),
		attribute.Int("sweep.errors", summary.Errors),
	)
	log.Info("evaluator.sweep.finish",
		zap.Int("rules", len(rules)),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("triggered", summary.Triggered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	if interrupted != nil {
		span.SetStatus(codes.Error, "sweep interrupted")
		log.Warn("evaluator.sweep.interrupted",
			zap.Int("remaining", len(rules)-processed),
			zap.Error(interrupted),
		)
		return summary, fmt.Errorf("sweep interrupted after %d of %d rules: %w", processed, len(rules), interrupted)
	}
	return summary, nil
}

// processRule contains every failure of a single rule, panics included.
func (e *Engine) processRule(ctx context.Context, rule ruledomain.Rule) (outcome string) {
	ctx = obscontext.WithOrgID(ctx, rule.OrgID.String())
	ctx, span := otel.Tracer(tracerName).Start(ctx, "evaluator.rule")
	span.SetAttributes(
		attribute.String("rule.id", rule.ID.String()),
		attribute.String("rule.type", string(rule.RuleType)),
	)
	log := obslogger.WithContext(ctx, e.log).With(
		zap.String("rule_id", rule.ID.String()),
		zap.String("rule_name", rule.Name),
	)

	defer func() {
		if r := recover(); r != nil {
			e.fail(log, span, &EvaluationError{RuleID: rule.ID, Stage: StagePanic, Err: fmt.Errorf("panic: %v", r)})
			outcome = OutcomeError
		}
		span.SetAttributes(attribute.String("rule.outcome", outcome))
		span.End()
	}()

	outcome, err := e.evaluateRule(ctx, log, rule)
	if err != nil {
		e.fail(log, span, err)
		return OutcomeError
	}
	return outcome
}

func (e *Engine) evaluateRule(ctx context.Context, log *zap.Logger, rule ruledomain.Rule) (string, error) {
	now := e.clock.Now()
	if e.cooldown.Active(rule, now) {
		log.Debug("evaluator.rule.skipped",
			zap.String("reason", "cooldown"),
			zap.Duration("remaining", e.cooldown.Remaining(rule, now)),
		)
		return OutcomeSkipped, nil
	}

	cond, err := rule.DecodedCondition()
	if err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageDecode, Err: err}
	}
	actions, err := rule.DecodedActions()
	if err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageDecode, Err: err}
	}
	scope, err := rule.Scope()
	if err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageDecode, Err: err}
	}

	devices, err := e.devices.ListInScope(ctx, rule.OrgID, scope)
	if err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageDevices, Err: err}
	}
	if len(devices) == 0 {
		log.Debug("evaluator.rule.skipped", zap.String("reason", "empty_scope"))
		return OutcomeSkipped, nil
	}

	evaluation, err := e.conditions.Evaluate(ctx, cond, devices, now)
	if err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageCondition, Err: err}
	}
	triggered := evaluation.Devices
	if len(triggered) == 0 {
		log.Debug("evaluator.rule.evaluated", zap.Int("devices", len(devices)))
		return OutcomeEvaluated, nil
	}

	// Persistence failures are logged and counted by the alert service; the rule still notifies.
	_, _ = e.alerts.Materialize(ctx, alertdomain.MaterializeRequest{
		Rule:        rule,
		Condition:   cond,
		Devices:     triggered,
		Observed:    evaluation.Observed,
		TriggeredAt: now,
	})

	result := e.dispatcher.Dispatch(ctx, rule, actions, notificationdomain.NewPayload(rule, triggered, now))

	if err := e.cooldown.Record(ctx, rule, now); err != nil {
		return "", &EvaluationError{RuleID: rule.ID, Stage: StageCooldown, Err: err}
	}

	log.Info("evaluator.rule.triggered",
		zap.Int("devices", len(devices)),
		zap.Int("triggered_devices", len(triggered)),
		zap.Int("actions", len(actions)),
		zap.Int("actions_failed", result.Failed()),
	)
	return OutcomeTriggered, nil
}

func (e *Engine) fail(log *zap.Logger, span trace.Span, err error) {
	stage := StageCondition
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		stage = evalErr.Stage
	}
	safe := tracing.SafeError(err)
	span.RecordError(safe)
	span.SetStatus(codes.Error, stage)
	e.sweepMetrics.IncRuleError(stage, err)
	log.Error("evaluator.rule.failed",
		zap.String("stage", stage),
		zap.String("reason", obsmetrics.ClassifyErrorReason(err)),
		zap.Error(err),
	)
}

// orgFromContext returns the organization a sweep is restricted to, or nil for all.
func orgFromContext(ctx context.Context) (*snowflake.ID, error) {
	raw := strings.TrimSpace(obscontext.OrgIDFromContext(ctx))
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrganization, raw)
	}
	return &id, nil
}
