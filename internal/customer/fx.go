package customer

import (
	"github.com/traversoft/customer-portal/internal/customer/repository"
	"github.com/traversoft/customer-portal/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
