package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "data", "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Len(t, migrations[0].Checksum, 64)
}

func TestLoadMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "no version prefix",
			fsys:    fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid migration filename format",
		},
		{
			name:    "zero version",
			fsys:    fstest.MapFS{"000_base.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "invalid migration filename format",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"001_a.sql":  {Data: []byte("SELECT 1;")},
				"0001_b.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "duplicate migration version 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.fsys)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMigrator_AppliesOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_items.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY);")},
	}
	m := NewMigrator(db, zap.NewNop())

	n, err := m.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Re-running would fail on CREATE TABLE if the version were not recorded.
	n, err = m.Migrate(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMigrator_DetectsEditedMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db, zap.NewNop())

	_, err := m.Migrate(ctx, fstest.MapFS{
		"001_items.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY);")},
	})
	require.NoError(t, err)

	_, err = m.Migrate(ctx, fstest.MapFS{
		"001_items.sql": {Data: []byte("CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT);")},
	})
	assert.ErrorContains(t, err, "changed after it was applied")
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := NewMigrator(db, zap.NewNop()).Migrate(ctx, fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE broken (;")},
	})
	require.ErrorContains(t, err, "failed to apply migration 2")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.EqualError(t, err, "database path cannot be empty")
}

func TestDSN_BusyTimeout(t *testing.T) {
	assert.Contains(t, dsn(Config{Path: "x.db"}), "_busy_timeout=5000")
	assert.Contains(t, dsn(Config{Path: "x.db", BusyTimeout: 250 * time.Millisecond}), "_busy_timeout=250")
}
