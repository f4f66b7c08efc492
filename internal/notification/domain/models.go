package domain

import (
	"context"
	"errors"
	"time"

	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
)

type TriggeredDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Payload is the message body every transport receives for a triggered rule.
type Payload struct {
	RuleID           string            `json:"rule_id"`
	RuleName         string            `json:"rule_name"`
	TriggeredDevices []TriggeredDevice `json:"triggered_devices"`
	Timestamp        time.Time         `json:"timestamp"`
}

// NewPayload builds the payload for devices triggered by rule at the given time.
func NewPayload(rule ruledomain.Rule, devices []devicedomain.Device, at time.Time) Payload {
	triggered := make([]TriggeredDevice, 0, len(devices))
	for _, d := range devices {
		triggered = append(triggered, TriggeredDevice{ID: d.ID, Name: d.Name})
	}
	return Payload{
		RuleID:           rule.ID.String(),
		RuleName:         rule.Name,
		TriggeredDevices: triggered,
		Timestamp:        at.UTC(),
	}
}

// Delivery addresses a payload to a single action target.
type Delivery struct {
	Kind       ruledomain.ActionKind
	Recipients []string
	URL        string
	Headers    map[string]string
	Payload    Payload
}

// Transport delivers one notification. Implementations must honor ctx cancellation.
type Transport interface {
	Send(ctx context.Context, delivery Delivery) error
}

// ActionResult reports the outcome of one configured action.
type ActionResult struct {
	Index int
	Kind  ruledomain.ActionKind
	Err   error
}

type DispatchResult struct {
	Results []ActionResult
}

func (r DispatchResult) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

type Dispatcher interface {
	// Dispatch runs every action independently; failures are reported, never returned.
	Dispatch(ctx context.Context, rule ruledomain.Rule, actions []ruledomain.Action, payload Payload) DispatchResult
}

var (
	ErrTransportUnavailable = errors.New("transport_unavailable")
	ErrDeliveryRejected     = errors.New("delivery_rejected")
	ErrActionPanicked       = errors.New("action_panicked")
)
