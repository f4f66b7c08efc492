package email

import (
	"github.com/nats-io/nats.go"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(fx.Annotate(NewFromConfig, fx.ResultTags(`name:"email"`))),
)

type Params struct {
	fx.In

	Cfg  config.Config
	Log  *zap.Logger
	Conn *nats.Conn `optional:"true"`
}

// NewFromConfig prefers a direct SMTP relay and falls back to NATS hand-off.
// A nil transport leaves email actions reported as unavailable.
func NewFromConfig(p Params) domain.Transport {
	log := p.Log.Named("providers.email")
	switch {
	case p.Cfg.SMTP.Enabled():
		log.Info("email transport", zap.String("mode", "smtp"))
		return NewSMTP(Config{
			Host:     p.Cfg.SMTP.Host,
			Port:     p.Cfg.SMTP.Port,
			Username: p.Cfg.SMTP.Username,
			Password: p.Cfg.SMTP.Password,
			From:     p.Cfg.SMTP.From,
		})
	case p.Conn != nil:
		log.Info("email transport", zap.String("mode", "nats"), zap.String("subject", p.Cfg.NATS.EmailSubject))
		return NewNATS(p.Conn, p.Cfg.NATS.EmailSubject)
	}
	log.Warn("email transport disabled")
	return nil
}
