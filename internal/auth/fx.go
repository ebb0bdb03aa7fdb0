package auth

import (
	"github.com/traversoft/customer-portal/internal/auth/cookie"
	"github.com/traversoft/customer-portal/internal/auth/directory"
	"github.com/traversoft/customer-portal/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(cookie.New),
	fx.Provide(directory.Provide),
	fx.Provide(service.New),
)
