package quality

import (
	"github.com/railzwaylabs/biochar/internal/quality/repository"
	"github.com/railzwaylabs/biochar/internal/quality/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quality.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
