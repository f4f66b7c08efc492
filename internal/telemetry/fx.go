package telemetry

import (
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
	"github.com/smallbiznis/fleetwatch/internal/telemetry/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("telemetry.source",
	fx.Provide(repository.Provide),
	fx.Provide(normalizer.New),
)
