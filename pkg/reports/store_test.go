package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
)

func report(id string, score int, created time.Time) *analysis.Report {
	return &analysis.Report{ID: id, Title: "meeting " + id, Score: score, CreatedAt: created}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, report("a", 40, base)))
	require.NoError(t, s.Save(ctx, report("b", 70, base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, report("c", 55, base.Add(2*time.Hour))))

	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 70, got.Score)

	_, err = s.Get(ctx, "missing")
	assert.True(t, fferrors.IsNotFound(err))

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)

	entries, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestMemoryStore_SaveRequiresID(t *testing.T) {
	err := NewMemoryStore().Save(context.Background(), &analysis.Report{})
	require.Error(t, err)
	assert.True(t, fferrors.IsValidation(err))
}

func TestPostgresStore_Expand(t *testing.T) {
	s := NewPostgresStore(nil, `team "reports"`, nil)
	assert.Equal(t, `team "reports"`, s.Table())

	got := s.expand("CREATE INDEX {{index_created_at}} ON {{table}} (created_at)")
	assert.Equal(t, `CREATE INDEX "team ""reports""_created_at_idx" ON "team ""reports""" (created_at)`, got)

	assert.Equal(t, DefaultTable, NewPostgresStore(nil, "", nil).Table())
}

func TestMigrationFilesEmbedded(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "001_create_reports.sql", entries[0].Name())
}
