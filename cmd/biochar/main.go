package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/biochar/internal/audit"
	"github.com/railzwaylabs/biochar/internal/bcu"
	"github.com/railzwaylabs/biochar/internal/bootstrap"
	"github.com/railzwaylabs/biochar/internal/calculation"
	"github.com/railzwaylabs/biochar/internal/clock"
	"github.com/railzwaylabs/biochar/internal/config"
	"github.com/railzwaylabs/biochar/internal/corc"
	"github.com/railzwaylabs/biochar/internal/lock"
	"github.com/railzwaylabs/biochar/internal/migration"
	"github.com/railzwaylabs/biochar/internal/monitoringperiod"
	"github.com/railzwaylabs/biochar/internal/observability"
	"github.com/railzwaylabs/biochar/internal/quality"
	"github.com/railzwaylabs/biochar/internal/recalc"
	"github.com/railzwaylabs/biochar/internal/records"
	"github.com/railzwaylabs/biochar/internal/redis"
	"github.com/railzwaylabs/biochar/internal/scheduler"
	"github.com/railzwaylabs/biochar/internal/server"
	"github.com/railzwaylabs/biochar/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "biochar",
		Short:        "Biochar carbon removal registry",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations, seed reference data and activate the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and recalculation workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(fx.Options(registry(), server.Module))
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the stale period sweep and recalculation workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(fx.Options(registry(), scheduler.Module, fx.Invoke(startScheduler)))
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then the API and scheduler in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			return run(fx.Options(registry(), server.Module, scheduler.Module, fx.Invoke(startScheduler)))
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return app.Stop(context.Background())
}

// registry wires everything a serving process needs apart from its entry surface.
func registry() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		lock.Module,
		bootstrap.Module,
		fx.Invoke(bootstrap.EnforceSchemaGate),

		audit.Module,
		records.Module,
		quality.Module,
		monitoringperiod.Module,
		calculation.Module,
		corc.Module,
		bcu.Module,
		recalc.Module,
	)
}

func run(opts fx.Option) error {
	app := fx.New(opts)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func registerSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
