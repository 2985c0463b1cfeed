package recalc

import (
	"context"

	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	"github.com/railzwaylabs/biochar/internal/recalc/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("recalc.queue",
	fx.Provide(repository.Provide),
	fx.Provide(NewRunner),
	fx.Provide(New),
	fx.Provide(NewQualityNotifier),
	fx.Invoke(registerLifecycle),
)

// NewRunner adapts the calculation service to the queue.
func NewRunner(svc calculationdomain.Service) Runner {
	return svc
}

func registerLifecycle(lc fx.Lifecycle, q *Queue) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return q.Stop(ctx)
		},
	})
}
