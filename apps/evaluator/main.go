package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fleetwatch/internal/alert"
	"github.com/smallbiznis/fleetwatch/internal/clock"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/device"
	"github.com/smallbiznis/fleetwatch/internal/evaluator"
	"github.com/smallbiznis/fleetwatch/internal/lock"
	"github.com/smallbiznis/fleetwatch/internal/migration"
	"github.com/smallbiznis/fleetwatch/internal/notification"
	"github.com/smallbiznis/fleetwatch/internal/observability"
	"github.com/smallbiznis/fleetwatch/internal/providers"
	"github.com/smallbiznis/fleetwatch/internal/rule"
	"github.com/smallbiznis/fleetwatch/internal/scheduler"
	"github.com/smallbiznis/fleetwatch/internal/server"
	"github.com/smallbiznis/fleetwatch/internal/telemetry"
	"github.com/smallbiznis/fleetwatch/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Data sources and sinks
		rule.Module,
		device.Module,
		telemetry.Module,
		alert.Module,

		// Delivery
		providers.Module,
		notification.Module,

		evaluator.Module,
		lock.Module,
		scheduler.Module,
		scheduler.Loop,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
