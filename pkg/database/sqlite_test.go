package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "db", "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_Run(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.Run(Migrations()))
	// a second run finds nothing pending
	require.NoError(t, migrator.Run(Migrations()))

	version, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	_, err = db.Exec("INSERT INTO corrections (id, file_name, status) VALUES ('a', 'f.xml', 'CORRECTED')")
	assert.NoError(t, err)
}

func TestMigrator_AppliesOnlyPending(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	first := fstest.MapFS{"001_first.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")}}
	require.NoError(t, migrator.Run(first))

	// 001 would fail if it ran again
	both := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
	}
	require.NoError(t, migrator.Run(both))

	version, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	_, err = db.Exec("INSERT INTO b (id) VALUES (1)")
	assert.NoError(t, err)
}

func TestMigrator_FailedMigrationKeepsVersion(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	err := migrator.Run(fstest.MapFS{"001_broken.sql": {Data: []byte("CREATE TABLE (;")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_broken")

	version, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations(fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	})
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)

	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no version", fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}}},
		{"zero version", fstest.MapFS{"000_init.sql": {Data: []byte("SELECT 1;")}}},
		{"duplicate version", fstest.MapFS{
			"001_a.sql":  {Data: []byte("SELECT 1;")},
			"0001_b.sql": {Data: []byte("SELECT 1;")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadMigrations(tt.fsys)
			assert.Error(t, err)
		})
	}
}

func TestDB_WithTransaction(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE items (name TEXT)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (name) VALUES ('rolled back')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, db.WithTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO items (name) VALUES ('kept')")
		return err
	}))

	var names []string
	rows, err := db.Query("SELECT name FROM items")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	assert.Equal(t, []string{"kept"}, names)
}
