package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsCreateOnlyKVTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.db")

	s, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), TasksKey, []byte("[]")))

	var version int
	require.NoError(t, s.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)

	var indexes []string
	require.NoError(t, s.db.Select(&indexes,
		"SELECT name FROM sqlite_master WHERE type='index' AND tbl_name='kv' AND sql IS NOT NULL"))
	assert.Empty(t, indexes)
	require.NoError(t, s.Close())

	// Reopening must not re-apply migrations.
	s, err = NewSQLiteBackend(path)
	require.NoError(t, err)
	defer s.Close()

	var rows int
	require.NoError(t, s.db.Get(&rows, "SELECT COUNT(*) FROM schema_version"))
	assert.Equal(t, len(migrations), rows)

	data, err := s.Get(context.Background(), TasksKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
