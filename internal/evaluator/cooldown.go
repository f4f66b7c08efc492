package evaluator

import (
	"context"
	"time"

	ruledomain "github.com/smallbiznis/fleetwatch/internal/rule/domain"
)

// CooldownTracker gates rules per rule, not per device.
type CooldownTracker struct {
	source ruledomain.Source
}

func NewCooldownTracker(source ruledomain.Source) *CooldownTracker {
	return &CooldownTracker{source: source}
}

// Active reports whether rule is still inside the window opened by its last firing.
func (c *CooldownTracker) Active(rule ruledomain.Rule, now time.Time) bool {
	if rule.LastTriggeredAt == nil {
		return false
	}
	return now.Before(rule.LastTriggeredAt.Add(rule.Cooldown()))
}

// Remaining is the time left before the rule may fire again.
func (c *CooldownTracker) Remaining(rule ruledomain.Rule, now time.Time) time.Duration {
	if !c.Active(rule, now) {
		return 0
	}
	return rule.LastTriggeredAt.Add(rule.Cooldown()).Sub(now)
}

// Record stamps the rule as fired at now.
func (c *CooldownTracker) Record(ctx context.Context, rule ruledomain.Rule, now time.Time) error {
	return c.source.MarkTriggered(ctx, rule.ID, now)
}
