package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchema(t *testing.T) {
	first, err := EmbeddedSchema()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.Version, uint(1))
	assert.Len(t, first.Checksum, 64)
	assert.Equal(t, "1", Schema{Version: 1}.VersionString())

	second, err := EmbeddedSchema()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseMigrationVersion(t *testing.T) {
	v, ok := parseMigrationVersion("000012_add_index.up.sql")
	assert.True(t, ok)
	assert.Equal(t, uint(12), v)

	_, ok = parseMigrationVersion("init.up.sql")
	assert.False(t, ok)

	_, ok = parseMigrationVersion("v2_init.up.sql")
	assert.False(t, ok)
}

func TestUpMigrationsAreOrdered(t *testing.T) {
	names, err := upMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, name := range names {
		assert.True(t, strings.HasSuffix(name, ".up.sql"), name)
	}
	assert.IsIncreasing(t, names)
}

func TestEmbeddedSchemaCoversRegistryTables(t *testing.T) {
	content, err := embeddedMigrations.ReadFile(migrationsDir + "/000001_registry_schema.up.sql")
	require.NoError(t, err)

	schema := string(content)
	for _, table := range []string{
		"facilities", "production_batches", "lab_tests", "monitoring_periods", "corc_issuances",
		"bcus", "bcu_transfers", "recalculation_tasks", "audit_logs", "system_bootstrap_state",
		"methodology_editions", "baseline_scenarios",
	} {
		assert.True(t, strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table+" ("), table)
	}
}
