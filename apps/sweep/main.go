package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fleetwatch/internal/alert"
	"github.com/smallbiznis/fleetwatch/internal/clock"
	"github.com/smallbiznis/fleetwatch/internal/config"
	"github.com/smallbiznis/fleetwatch/internal/device"
	"github.com/smallbiznis/fleetwatch/internal/evaluator"
	"github.com/smallbiznis/fleetwatch/internal/lock"
	"github.com/smallbiznis/fleetwatch/internal/notification"
	"github.com/smallbiznis/fleetwatch/internal/observability"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
	"github.com/smallbiznis/fleetwatch/internal/providers"
	"github.com/smallbiznis/fleetwatch/internal/rule"
	"github.com/smallbiznis/fleetwatch/internal/scheduler"
	"github.com/smallbiznis/fleetwatch/internal/telemetry"
	"github.com/smallbiznis/fleetwatch/pkg/db"
	"go.uber.org/fx"
)

// sweep runs a single evaluation pass and prints its summary as JSON.
func main() {
	orgID := flag.String("org", "", "restrict the sweep to one organization id")
	flag.Parse()

	var sched *scheduler.Scheduler
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		rule.Module,
		device.Module,
		telemetry.Module,
		alert.Module,
		providers.Module,
		notification.Module,
		evaluator.Module,
		lock.Module,
		scheduler.Module,
		fx.Populate(&sched),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "sweep: start: %v\n", err)
		os.Exit(1)
	}

	summary, runErr := sched.Trigger(context.Background(), obsmetrics.TriggerCLI, *orgID)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = app.Stop(stopCtx)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "sweep: %v\n", runErr)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		fmt.Fprintf(os.Stderr, "sweep: encode summary: %v\n", err)
		os.Exit(1)
	}
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
