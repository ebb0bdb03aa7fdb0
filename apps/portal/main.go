package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/traversoft/customer-portal/internal/config"
	"github.com/traversoft/customer-portal/internal/migration"
	"github.com/traversoft/customer-portal/internal/observability"
	"github.com/traversoft/customer-portal/internal/server"
	"github.com/traversoft/customer-portal/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
