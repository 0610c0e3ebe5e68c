package db

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"with .sql suffix", "001_test.sql", "001_test"},
		{"with .SQL suffix (uppercase)", "002_test.SQL", "002_test"},
		{"without .sql suffix", "003_test", "003_test"},
		{"empty string", "", ""},
		{"just .sql", ".sql", ".sql"},
		{"mixed case .Sql", "004_test.Sql", "004_test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeVersion(tt.input))
		})
	}
}

func TestFindMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_index.sql":      {Data: []byte("-- test")},
		"001_create_reports.sql": {Data: []byte("-- test")},
		"README.md":              {Data: []byte("ignored")},
		"nested/003_skip.sql":    {Data: []byte("-- nested files are ignored")},
	}

	migrations, err := findMigrations(Source{FS: fsys})
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001_create_reports", migrations[0].Version)
	assert.Equal(t, "001_create_reports.sql", migrations[0].Name)
	assert.Equal(t, "002_add_index", migrations[1].Version)

	migrations, err = findMigrations(Source{FS: fsys, Namespace: "meeting_reports"})
	require.NoError(t, err)
	assert.Equal(t, "meeting_reports/001_create_reports", migrations[0].Version)
	assert.Equal(t, "meeting_reports/001_create_reports.sql", migrations[0].Name)
	assert.Equal(t, "001_create_reports.sql", migrations[0].Path)
}

func TestFindMigrations_Empty(t *testing.T) {
	migrations, err := findMigrations(Source{FS: fstest.MapFS{}})
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestReadMigration_Expands(t *testing.T) {
	fsys := fstest.MapFS{
		"001.sql": {Data: []byte("CREATE TABLE {{table}} (id text)")},
		"002.sql": {Data: []byte("   \n")},
	}
	expand := func(sql string) string { return strings.ReplaceAll(sql, "{{table}}", `"meeting_reports"`) }

	src := Source{FS: fsys, Expand: expand}
	sql, err := readMigration(src, Migration{Path: "001.sql"})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "meeting_reports" (id text)`, sql)

	_, err = readMigration(Source{FS: fsys}, Migration{Path: "002.sql"})
	assert.Error(t, err)

	_, err = readMigration(src, Migration{Path: "missing.sql"})
	assert.Error(t, err)
}

func TestBuildStatus(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	migrations := []Migration{
		{Version: "001_create", Name: "001_create.sql"},
		{Version: "002_index", Name: "002_index.sql"},
	}

	status := buildStatus(migrations, map[string]time.Time{"001_create": at})
	require.Len(t, status.Applied, 1)
	require.Len(t, status.Pending, 1)
	assert.Equal(t, "001_create", status.Applied[0].Version)
	assert.Equal(t, at, *status.Applied[0].AppliedAt)
	assert.Equal(t, "002_index", status.Pending[0].Version)
	assert.Nil(t, status.Pending[0].AppliedAt)
}

func TestRunMigrations_NilPool(t *testing.T) {
	_, err := RunMigrations(context.Background(), nil, Source{FS: fstest.MapFS{}})
	assert.EqualError(t, err, "pool is nil")
}

func TestGetMigrationStatus_NilPool(t *testing.T) {
	_, err := GetMigrationStatus(context.Background(), nil, Source{FS: fstest.MapFS{}})
	assert.EqualError(t, err, "pool is nil")
}
