package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"go.uber.org/fx"
)

const keySweepTrigger = "fleetwatch:sweep:trigger:%s"

// TriggerLimiter throttles manual sweep triggers per organization.
type TriggerLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

type Params struct {
	fx.In

	Cfg    config.Config
	Client *redis.Client `optional:"true"`
}

// NewTriggerLimiter returns nil when Redis or a positive rate is missing; a nil limiter allows everything.
func NewTriggerLimiter(p Params) *TriggerLimiter {
	if p.Client == nil {
		return nil
	}
	return newTriggerLimiter(p.Client, p.Cfg.Sweep.TriggerRate, p.Cfg.Sweep.TriggerBurst)
}

func newTriggerLimiter(client redis.Cmdable, rate float64, burst int) *TriggerLimiter {
	if client == nil || rate <= 0 || burst <= 0 {
		return nil
	}
	return &TriggerLimiter{bucket: NewTokenBucket(client), rate: rate, burst: burst}
}

func (l *TriggerLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow checks the bucket for orgID; an empty orgID shares the "all" bucket.
func (l *TriggerLimiter) Allow(ctx context.Context, orgID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		orgID = "all"
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySweepTrigger, orgID), l.rate, l.burst)
}
