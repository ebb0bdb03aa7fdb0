package erp

import "go.uber.org/fx"

var Module = fx.Module("erp.inventory",
	fx.Provide(Provide),
)
