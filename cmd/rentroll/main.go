package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/rentrollhq/rentroll/internal/clock"
	"github.com/rentrollhq/rentroll/internal/config"
	"github.com/rentrollhq/rentroll/internal/logger"
	"github.com/rentrollhq/rentroll/internal/migration"
	"github.com/rentrollhq/rentroll/internal/observability"
	"github.com/rentrollhq/rentroll/internal/scheduler"
	"github.com/rentrollhq/rentroll/internal/server"
	"github.com/rentrollhq/rentroll/pkg/db"
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
		migration.Module,
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
