//go:build wireinject
// +build wireinject

package main

import (
	"byokchat/config"
	"byokchat/internal/agent"
	"byokchat/internal/command"
	"byokchat/internal/cron"
	"byokchat/internal/database"
	"byokchat/internal/handler"
	"byokchat/internal/middleware"
	"byokchat/internal/router"
	"byokchat/internal/service"
	"byokchat/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// wireApp init application.
func wireApp(*config.Configuration, *zap.Logger) (*App, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			agent.ProviderSet,
			service.ProviderSet,
			handler.ProviderSet,
			middleware.ProviderSet,
			router.ProviderSet,
			cron.ProviderSet,
			newHttpServer,
			telemetry.ProviderSet,
			newApp,
		),
	)
}

// wireCommand init application.
func wireCommand(*config.Configuration, *zap.Logger) (*command.Command, func(), error) {
	panic(
		wire.Build(
			database.ProviderSet,
			agent.ProviderSet,
			service.ProviderSet,
			telemetry.ProviderSet,
			command.ProviderSet,
		),
	)
}
