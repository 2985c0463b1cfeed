package migration

import (
	"github.com/railzwaylabs/biochar/internal/methodology"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)

// Migrate seeds the built-in methodology edition and, when a file overrides it, the configured one
// too, so every result the registry can stamp has a matching edition row.
func Migrate(conn *gorm.DB, holder *methodology.Holder, log *zap.Logger) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	editions := []methodology.Params{methodology.Default()}
	if current := holder.Current(); current.Version != editions[0].Version {
		editions = append(editions, current)
	}

	schema, err := RunMigrations(sqlDB, editions...)
	if err != nil {
		return err
	}
	log.Info("schema active",
		zap.Uint("schema_version", schema.Version),
		zap.String("checksum", schema.Checksum),
		zap.String("methodology_version", editions[len(editions)-1].Version),
	)
	return nil
}
