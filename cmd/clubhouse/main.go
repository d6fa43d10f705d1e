package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/internal/audit"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	"github.com/smallbiznis/clubhouse/internal/billing"
	"github.com/smallbiznis/clubhouse/internal/captain"
	"github.com/smallbiznis/clubhouse/internal/clock"
	"github.com/smallbiznis/clubhouse/internal/config"
	"github.com/smallbiznis/clubhouse/internal/draft"
	"github.com/smallbiznis/clubhouse/internal/finance"
	"github.com/smallbiznis/clubhouse/internal/game"
	"github.com/smallbiznis/clubhouse/internal/guest"
	"github.com/smallbiznis/clubhouse/internal/ledger"
	"github.com/smallbiznis/clubhouse/internal/metricspush"
	"github.com/smallbiznis/clubhouse/internal/migration"
	"github.com/smallbiznis/clubhouse/internal/observability"
	"github.com/smallbiznis/clubhouse/internal/organization"
	"github.com/smallbiznis/clubhouse/internal/ratelimit"
	"github.com/smallbiznis/clubhouse/internal/scheduler"
	"github.com/smallbiznis/clubhouse/internal/server"
	"github.com/smallbiznis/clubhouse/internal/team"
	"github.com/smallbiznis/clubhouse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,
		metricspush.Module,

		// Functional Domains
		authorization.Module,
		audit.Module,
		organization.Module,
		guest.Module,
		game.Module,
		team.Module,
		captain.Module,
		draft.Module,
		billing.Module,
		ledger.Module,
		finance.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
