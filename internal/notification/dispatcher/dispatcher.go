package dispatcher

import (
	"context"
	"fmt"

	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"github.com/smallbiznis/fleetwatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"github.com/smallbiznis/fleetwatch/internal/observability/tracing"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "fleetwatch/notification"

type Params struct {
	fx.In

	Log          *zap.Logger
	Email        domain.Transport         `name:"email" optional:"true"`
	SMS          domain.Transport         `name:"sms" optional:"true"`
	Webhook      domain.Transport         `name:"webhook" optional:"true"`
	SweepMetrics *obsmetrics.SweepMetrics `optional:"true"`
	Metrics      *obsmetrics.Metrics      `optional:"true"`
}

type Dispatcher struct {
	log          *zap.Logger
	email        domain.Transport
	sms          domain.Transport
	webhook      domain.Transport
	sweepMetrics *obsmetrics.SweepMetrics
	metrics      *obsmetrics.Metrics
}

func New(p Params) domain.Dispatcher {
	return &Dispatcher{
		log:          p.Log.Named("notification.dispatcher"),
		email:        p.Email,
		sms:          p.SMS,
		webhook:      p.Webhook,
		sweepMetrics: p.SweepMetrics,
		metrics:      p.Metrics,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rule ruledomain.Rule, actions []ruledomain.Action, payload domain.Payload) domain.DispatchResult {
	result := domain.DispatchResult{Results: make([]domain.ActionResult, 0, len(actions))}
	for i, action := range actions {
		err := d.run(ctx, rule, i, action, payload)
		result.Results = append(result.Results, domain.ActionResult{Index: i, Kind: action.Kind(), Err: err})
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, rule ruledomain.Rule, index int, action ruledomain.Action, payload domain.Payload) (err error) {
	kind := action.Kind()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "notification.action")
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("rule.id", rule.ID.String()),
		attribute.String("action.kind", string(kind)),
		attribute.Int("action.index", index),
	)...)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrActionPanicked, r)
		}
		status := obsmetrics.ActionStatusOK
		if err != nil {
			status = obsmetrics.ActionStatusFailed
			safe := tracing.SafeError(err)
			span.RecordError(safe)
			span.SetStatus(codes.Error, safe.Error())
			logger.WithContext(ctx, d.log).Warn("notification.action.failed",
				zap.String("rule_id", rule.ID.String()),
				zap.String("kind", string(kind)),
				zap.Int("index", index),
				zap.String("reason", obsmetrics.ClassifyErrorReason(err)),
				zap.Error(safe),
			)
		}
		span.End()
		d.sweepMetrics.IncAction(string(kind), status)
		d.metrics.RecordAction(ctx, string(kind), status)
	}()

	if invalid, ok := action.(ruledomain.InvalidAction); ok {
		return invalid.Err
	}
	transport, delivery := d.route(action, payload)
	if transport == nil {
		return fmt.Errorf("%w: %s", domain.ErrTransportUnavailable, kind)
	}
	return transport.Send(ctx, delivery)
}

func (d *Dispatcher) route(action ruledomain.Action, payload domain.Payload) (domain.Transport, domain.Delivery) {
	delivery := domain.Delivery{Kind: action.Kind(), Payload: payload}
	switch a := action.(type) {
	case ruledomain.EmailAction:
		delivery.Recipients = a.Recipients
		return d.email, delivery
	case ruledomain.SMSAction:
		delivery.Recipients = a.Recipients
		return d.sms, delivery
	case ruledomain.WebhookAction:
		delivery.URL = a.URL
		delivery.Headers = a.Headers
		return d.webhook, delivery
	}
	return nil, delivery
}
