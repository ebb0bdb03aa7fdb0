package audit

import (
	"github.com/traversoft/customer-portal/internal/audit/repository"
	"github.com/traversoft/customer-portal/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
