package config

import (
	"github.com/smallbiznis/fleetwatch/internal/telemetry/normalizer"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewMetricCatalogHolder),
	fx.Provide(func(h *MetricCatalogHolder) normalizer.CatalogSource { return h }),
)
