package providers

import (
	"github.com/smallbiznis/fleetwatch/internal/providers/email"
	"github.com/smallbiznis/fleetwatch/internal/providers/natsbus"
	"github.com/smallbiznis/fleetwatch/internal/providers/sms"
	"github.com/smallbiznis/fleetwatch/internal/providers/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	fx.Provide(natsbus.Connect),
	email.Module,
	sms.Module,
	webhook.Module,
)
