package session

import (
	"github.com/traversoft/customer-portal/internal/session/repository"
	"github.com/traversoft/customer-portal/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
