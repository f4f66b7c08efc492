package device

import (
	"github.com/smallbiznis/fleetwatch/internal/device/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("device.store",
	fx.Provide(repository.Provide),
)
