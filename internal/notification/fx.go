package notification

import (
	"github.com/smallbiznis/fleetwatch/internal/notification/dispatcher"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(dispatcher.New),
)
