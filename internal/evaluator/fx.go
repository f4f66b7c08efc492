package evaluator

import "go.uber.org/fx"

var Module = fx.Module("evaluator",
	fx.Provide(New),
	fx.Provide(func(e *Engine) Sweeper { return e }),
)
