package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/audit"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	"github.com/smallbiznis/clubhouse/internal/billing"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	"github.com/smallbiznis/clubhouse/internal/ledger"
	"github.com/smallbiznis/clubhouse/internal/metricspush"
	"github.com/smallbiznis/clubhouse/internal/observability"
	"github.com/smallbiznis/clubhouse/internal/organization"
	"github.com/smallbiznis/clubhouse/internal/ratelimit"
	"github.com/smallbiznis/clubhouse/internal/scheduler"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		metricspush.Module,

		// Domain services required by the billing run
		authorization.Module,
		audit.Module,
		organization.Module,
		billing.Module,
		ledger.Module,

		// No server module! This process always schedules.
		fx.Decorate(func(cfg config.Config) config.Config {
			cfg.Scheduler.Enabled = true
			return cfg
		}),
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
