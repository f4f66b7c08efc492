package rule

import (
	"github.com/smallbiznis/fleetwatch/internal/rule/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rule.source",
	fx.Provide(repository.Provide),
)
