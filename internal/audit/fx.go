package audit

import (
	"github.com/railzwaylabs/biochar/internal/audit/repository"
	"github.com/railzwaylabs/biochar/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewRecorder),
	fx.Provide(service.NewExportService),
)
