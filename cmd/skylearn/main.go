package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/logger"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/migration"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/observability"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/scheduler"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/server"
	"github.com/Faiver55/skylearn-billing-pro-sub005/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,

		scheduler.Module,
		migration.Module,
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
