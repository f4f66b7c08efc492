package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, delivery domain.Delivery) error {
	return m.Called(ctx, delivery).Error(0)
}

type panickingTransport struct{}

func (panickingTransport) Send(context.Context, domain.Delivery) error {
	panic("nil map write")
}

var testPayload = domain.Payload{
	RuleID:           "42",
	RuleName:         "Freezer too warm",
	TriggeredDevices: []domain.TriggeredDevice{{ID: "dev-a", Name: "Freezer 1"}},
	Timestamp:        time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC),
}

func TestDispatchIsolatesFailures(t *testing.T) {
	email := &mockTransport{}
	webhook := &mockTransport{}

	webhook.On("Send", mock.Anything, mock.MatchedBy(func(d domain.Delivery) bool {
		return d.Kind == ruledomain.ActionWebhook && d.URL == "https://hooks.example.com/a"
	})).Return(errors.New("webhook status=502")).Once()
	email.On("Send", mock.Anything, mock.MatchedBy(func(d domain.Delivery) bool {
		return d.Kind == ruledomain.ActionEmail && d.Recipients[0] == "ops@example.com" && d.Payload.RuleID == "42"
	})).Return(nil).Once()

	d := New(Params{Log: zap.NewNop(), Email: email, Webhook: webhook})
	actions := []ruledomain.Action{
		ruledomain.WebhookAction{URL: "https://hooks.example.com/a"},
		ruledomain.EmailAction{Recipients: []string{"ops@example.com"}},
	}

	result := d.Dispatch(context.Background(), ruledomain.Rule{ID: 42}, actions, testPayload)

	require.Len(t, result.Results, 2)
	assert.Error(t, result.Results[0].Err)
	assert.NoError(t, result.Results[1].Err)
	assert.Equal(t, 1, result.Failed())
	email.AssertExpectations(t)
	webhook.AssertExpectations(t)
}

func TestDispatchMissingTransport(t *testing.T) {
	d := New(Params{Log: zap.NewNop()})
	result := d.Dispatch(context.Background(), ruledomain.Rule{ID: 1},
		[]ruledomain.Action{ruledomain.SMSAction{Recipients: []string{"+15550100"}}}, testPayload)

	require.Len(t, result.Results, 1)
	assert.ErrorIs(t, result.Results[0].Err, domain.ErrTransportUnavailable)
}

func TestDispatchRecoversPanics(t *testing.T) {
	sms := &mockTransport{}
	sms.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	d := New(Params{Log: zap.NewNop(), Webhook: panickingTransport{}, SMS: sms})
	result := d.Dispatch(context.Background(), ruledomain.Rule{ID: 1}, []ruledomain.Action{
		ruledomain.WebhookAction{URL: "https://hooks.example.com/a"},
		ruledomain.SMSAction{Recipients: []string{"+15550100"}},
	}, testPayload)

	require.Len(t, result.Results, 2)
	assert.ErrorIs(t, result.Results[0].Err, domain.ErrActionPanicked)
	assert.NoError(t, result.Results[1].Err)
	sms.AssertExpectations(t)
}

func TestDispatchCountsActions(t *testing.T) {
	registry := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = registry
	obsmetrics.ResetSweepMetricsForTest()
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prev
		obsmetrics.ResetSweepMetricsForTest()
	})

	webhook := &mockTransport{}
	webhook.On("Send", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	webhook.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	d := New(Params{Log: zap.NewNop(), Webhook: webhook, SweepMetrics: obsmetrics.Sweep()})
	actions := []ruledomain.Action{
		ruledomain.WebhookAction{URL: "https://a.example.com"},
		ruledomain.WebhookAction{URL: "https://b.example.com"},
	}
	d.Dispatch(context.Background(), ruledomain.Rule{ID: 1}, actions, testPayload)

	families, err := registry.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "fleetwatch_sweep_actions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" {
					got[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"ok": 1, "failed": 1}, got)
}

func TestDispatchReportsInvalidActionWithoutSending(t *testing.T) {
	webhook := &mockTransport{}
	email := &mockTransport{}
	email.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	d := New(Params{Log: zap.NewNop(), Email: email, Webhook: webhook})
	bad := ruledomain.InvalidAction{Declared: ruledomain.ActionWebhook, Err: ruledomain.ErrInvalidAction}
	result := d.Dispatch(context.Background(), ruledomain.Rule{ID: 1}, []ruledomain.Action{
		bad,
		ruledomain.EmailAction{Recipients: []string{"ops@example.com"}},
	}, testPayload)

	require.Len(t, result.Results, 2)
	assert.Equal(t, ruledomain.ActionWebhook, result.Results[0].Kind)
	assert.ErrorIs(t, result.Results[0].Err, ruledomain.ErrInvalidAction)
	assert.NoError(t, result.Results[1].Err)
	webhook.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	email.AssertExpectations(t)
}
