package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Held for the whole migrate run so two migrators never interleave.
const migrationLockKey int64 = 0x62696f63686172

var ErrMigrationLocked = errors.New("migration_in_progress")

func withMigrationLock(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve migration connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockKey).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !locked {
		return ErrMigrationLocked
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	return fn(ctx)
}

// activateSchema marks the database usable by binaries built with schema and records the methodology
// edition that was active when it was migrated.
func activateSchema(ctx context.Context, db *sql.DB, schema Schema, methodologyVersion string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO system_bootstrap_state (id, status, schema_version, checksum, methodology_version, activated_at, created_at)
		VALUES (TRUE, 'active', $1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    methodology_version = EXCLUDED.methodology_version,
		    activated_at = EXCLUDED.activated_at
	`, schema.VersionString(), schema.Checksum, methodologyVersion, now)
	if err != nil {
		return fmt.Errorf("activate schema %s: %w", schema.VersionString(), err)
	}
	return nil
}
