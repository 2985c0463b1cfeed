package observability

import (
	"context"

	"github.com/railzwaylabs/biochar/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewMetrics),
	fx.Provide(NewTracerProvider),
	fx.Provide(NewTracer),
)

// NewLogger builds the process logger: JSON in production, console otherwise.
func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Observability.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.Observability.LogLevel)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zcfg.Build(zap.Fields(
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.AppVersion),
		zap.String("env", cfg.Env),
	))
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}
