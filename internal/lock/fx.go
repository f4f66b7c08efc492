package lock

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fleetwatch/internal/clock"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)

// NewRedisClient returns nil when REDIS_ADDR is unset.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

type Params struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Clock  clock.Clock
	Log    *zap.Logger
}

// NewLocker prefers Redis so replicas share the sweep lease.
func NewLocker(p Params) Locker {
	if p.Client != nil {
		p.Log.Named("lock").Info("lock.backend", zap.String("backend", "redis"))
		return NewRedisLocker(p.Client)
	}
	p.Log.Named("lock").Info("lock.backend", zap.String("backend", "local"))
	return NewLocalLocker(p.Clock)
}
