package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/officepulse/officepulse/internal/audit"
	"github.com/officepulse/officepulse/internal/bot"
	"github.com/officepulse/officepulse/internal/clock"
	"github.com/officepulse/officepulse/internal/config"
	"github.com/officepulse/officepulse/internal/copilot"
	"github.com/officepulse/officepulse/internal/distlock"
	"github.com/officepulse/officepulse/internal/graph"
	"github.com/officepulse/officepulse/internal/identity"
	"github.com/officepulse/officepulse/internal/logger"
	"github.com/officepulse/officepulse/internal/migration"
	"github.com/officepulse/officepulse/internal/scheduler"
	"github.com/officepulse/officepulse/internal/server"
	"github.com/officepulse/officepulse/internal/survey"
	"github.com/officepulse/officepulse/internal/usagereport"
	"github.com/officepulse/officepulse/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		graph.Module,
		identity.Module,
		audit.Module,
		usagereport.Module,
		copilot.Module,
		survey.Module,
		bot.Module,
		distlock.Module,
		scheduler.Module,
		server.Module,
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
