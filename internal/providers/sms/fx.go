package sms

import (
	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(fx.Annotate(NewFromConfig, fx.ResultTags(`name:"sms"`))),
)

type Params struct {
	fx.In

	Cfg  config.Config
	Log  *zap.Logger
	Conn *nats.Conn `optional:"true"`
}

// NewFromConfig returns nil when no NATS connection is available.
func NewFromConfig(p Params) domain.Transport {
	if p.Conn == nil {
		p.Log.Named("providers.sms").Warn("sms transport disabled")
		return nil
	}
	return NewNATS(p.Conn, p.Cfg.NATS.SMSSubject)
}
