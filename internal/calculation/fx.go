package calculation

import (
	"github.com/railzwaylabs/biochar/internal/calculation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calculation.service",
	fx.Provide(service.New),
)
