package bcu

import (
	"github.com/railzwaylabs/biochar/internal/bcu/repository"
	"github.com/railzwaylabs/biochar/internal/bcu/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bcu.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
