package corc

import (
	"github.com/railzwaylabs/biochar/internal/corc/repository"
	"github.com/railzwaylabs/biochar/internal/corc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("corc.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
