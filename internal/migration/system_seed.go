package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/railzwaylabs/biochar/internal/methodology"
)

type namedSeed struct {
	Code string
	Name string
}

// seedSystemImmutableData writes reference rows every deployment needs: the baseline scenarios a
// facility may declare and the methodology editions results can be stamped with.
func seedSystemImmutableData(ctx context.Context, db *sql.DB, editions []methodology.Params) error {
	if db == nil {
		return errors.New("system seed requires database handle")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := seedBaselineScenarios(ctx, tx); err != nil {
		return err
	}
	if err := seedMethodologyEditions(ctx, tx, editions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}

func seedBaselineScenarios(ctx context.Context, tx *sql.Tx) error {
	seeds := []namedSeed{
		{Code: string(methodology.BaselineNewBuild), Name: "New build"},
		{Code: string(methodology.BaselineRetrofit), Name: "Retrofit"},
		{Code: string(methodology.BaselineCharcoalRepurpose), Name: "Charcoal repurpose"},
	}

	const stmt = `
		INSERT INTO baseline_scenarios (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name
	`

	for _, seed := range seeds {
		if _, err := tx.ExecContext(ctx, stmt, seed.Code, seed.Name); err != nil {
			return fmt.Errorf("seed baseline scenario %s: %w", seed.Code, err)
		}
	}
	return nil
}

// seedMethodologyEditions records each edition once. An edition's parameters never change after it
// is first written.
func seedMethodologyEditions(ctx context.Context, tx *sql.Tx, editions []methodology.Params) error {
	const stmt = `
		INSERT INTO methodology_editions (version, params)
		VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING
	`

	for _, edition := range editions {
		payload, err := json.Marshal(edition)
		if err != nil {
			return fmt.Errorf("encode methodology edition %s: %w", edition.Version, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, edition.Version, string(payload)); err != nil {
			return fmt.Errorf("seed methodology edition %s: %w", edition.Version, err)
		}
	}
	return nil
}
