package webhook

import (
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.webhook",
	fx.Provide(fx.Annotate(NewFromConfig, fx.ResultTags(`name:"webhook"`))),
)

func NewFromConfig(cfg config.Config) domain.Transport {
	return New(Config{
		Timeout:   cfg.WebhookTimeout,
		UserAgent: cfg.AppName + "-webhook/" + cfg.AppVersion,
	})
}
