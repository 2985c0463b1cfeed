package records

import (
	"github.com/railzwaylabs/biochar/internal/records/repository"
	"github.com/railzwaylabs/biochar/internal/records/service"
	"go.uber.org/fx"
)

var Module = fx.Module("records.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
