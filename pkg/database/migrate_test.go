package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_SortsAndSkipsNonSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_b.sql":   {Data: []byte("SELECT 2;")},
		"m/0001_a.sql":   {Data: []byte("SELECT 1;")},
		"m/README.md":    {Data: []byte("docs")},
		"m/nested/x.sql": {Data: []byte("SELECT 3;")},
	}

	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0001_a", got[0].Version)
	assert.Equal(t, "0002_b", got[1].Version)
	assert.Equal(t, "SELECT 2;", got[1].SQL)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "0001_init", got[0].Version)
	assert.Contains(t, got[0].SQL, "bookings_no_overlap")
	assert.Contains(t, got[0].SQL, "ON DELETE RESTRICT")
	assert.Contains(t, got[0].SQL, "ON DELETE CASCADE")
}

func TestEmbeddedMigrations_CondoNamesAreCaseInsensitive(t *testing.T) {
	got, err := Migrations()
	require.NoError(t, err)

	var sql string
	for _, m := range got {
		if m.Version == "0003_condo_name_ci" {
			sql = m.SQL
		}
	}
	require.NotEmpty(t, sql, "case-insensitive condo index migration is embedded")
	assert.Contains(t, sql, "DROP CONSTRAINT IF EXISTS condos_name_location_key")
	assert.Contains(t, sql, "ON condos (lower(name), lower(location))")
}
