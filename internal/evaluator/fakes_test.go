package evaluator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/smallbiznis/fleetwatch/internal/alert/domain"
	devicedomain "github.com/smallbiznis/fleetwatch/internal/device/domain"
	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
	telemetrydomain "github.com/smallbiznis/fleetwatch/internal/telemetry/domain"
)

type memRules struct {
	mu      sync.Mutex
	rules   []ruledomain.Rule
	marked  map[snowflake.ID]time.Time
	listErr error
	markErr error
}

func newMemRules(rules ...ruledomain.Rule) *memRules {
	return &memRules{rules: rules, marked: map[snowflake.ID]time.Time{}}
}

func (m *memRules) ListEnabled(_ context.Context, orgID *snowflake.ID) ([]ruledomain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]ruledomain.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		if !r.Enabled {
			continue
		}
		if orgID != nil && r.OrgID != *orgID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memRules) MarkTriggered(_ context.Context, ruleID snowflake.ID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	for i := range m.rules {
		if m.rules[i].ID == ruleID {
			stamp := at
			m.rules[i].LastTriggeredAt = &stamp
			m.marked[ruleID] = at
			return nil
		}
	}
	return ruledomain.ErrNotFound
}

type memDevices struct {
	devices  []devicedomain.Device
	panicOrg snowflake.ID
}

func (m *memDevices) inOrganization(orgID snowflake.ID) []devicedomain.Device {
	if m.panicOrg != 0 && orgID == m.panicOrg {
		panic("device index corrupted")
	}
	out := make([]devicedomain.Device, 0)
	for _, d := range m.devices {
		if d.OrgID == orgID {
			out = append(out, d)
		}
	}
	return out
}

func (m *memDevices) ListInScope(_ context.Context, orgID snowflake.ID, scope devicedomain.Scope) ([]devicedomain.Device, error) {
	return devicedomain.Resolve(scope, m.inOrganization(orgID)), nil
}

type memTelemetry struct {
	readings []telemetrydomain.Reading
	payloads []telemetrydomain.Payload
	err      error
}

func (m *memTelemetry) Readings(_ context.Context, deviceID, metric string, since time.Time) ([]telemetrydomain.Reading, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]telemetrydomain.Reading, 0)
	for _, r := range m.readings {
		if r.DeviceID == deviceID && r.Metric == metric && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memTelemetry) Payloads(_ context.Context, deviceID string, since time.Time) ([]telemetrydomain.Payload, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]telemetrydomain.Payload, 0)
	for _, p := range m.payloads {
		if p.DeviceID == deviceID && !p.ReceivedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out, nil
}

type memSink struct {
	mu     sync.Mutex
	alerts []alertdomain.Alert
	err    error
}

func (m *memSink) InsertBatch(_ context.Context, alerts []alertdomain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alerts...)
	return nil
}

func (m *memSink) all() []alertdomain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]alertdomain.Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
