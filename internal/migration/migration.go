package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/railzwaylabs/biochar/internal/methodology"
)

const migrateTimeout = 2 * time.Minute

// RunMigrations brings the database to the embedded schema, seeds baseline scenarios and the given
// methodology editions, and activates the schema. The last edition is recorded as the active one.
func RunMigrations(db *sql.DB, editions ...methodology.Params) (Schema, error) {
	if db == nil {
		return Schema{}, errors.New("migration database handle is required")
	}
	if len(editions) == 0 {
		editions = []methodology.Params{methodology.Default()}
	}

	schema, err := EmbeddedSchema()
	if err != nil {
		return Schema{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	err = withMigrationLock(ctx, db, func(ctx context.Context) error {
		migrator, err := newMigrator(db)
		if err != nil {
			return err
		}
		if err := migrateUp(migrator, schema.Version); err != nil {
			return err
		}
		if err := seedSystemImmutableData(ctx, db, editions); err != nil {
			return err
		}
		return activateSchema(ctx, db, schema, editions[len(editions)-1].Version)
	})
	if err != nil {
		return Schema{}, err
	}
	return schema, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

// migrateUp applies pending migrations and checks the database ends at want. A dirty database is
// never touched; it needs a manual fix first.
func migrateUp(migrator *migrate.Migrate, want uint) error {
	if _, err := cleanVersion(migrator); err != nil {
		return err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	got, err := cleanVersion(migrator)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("schema at version %d after migrate, want %d", got, want)
	}
	return nil
}

func cleanVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("database migrations are dirty at version %d", version)
	}
	return version, nil
}
