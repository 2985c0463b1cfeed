package monitoringperiod

import (
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/repository"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("monitoringperiod.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
