package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the schema migrations shipped with the binary
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migration is one numbered schema script
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator brings the schema up to date. The applied version is kept in
// SQLite's user_version header field.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// Version returns the schema version recorded in the database
func (m *Migrator) Version() (int, error) {
	var version int
	if err := m.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Run applies the scripts of fsys newer than the recorded version, each in
// its own transaction
func (m *Migrator) Run(fsys fs.FS) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	migrations, err := loadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		m.logger.Info("Applying migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))

		err := m.db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(mig.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", mig.Version))
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		current = mig.Version
	}

	m.logger.Info("Database schema up to date", zap.Int("version", current))
	return nil
}

// loadMigrations reads the *.sql files of fsys, named NNN_name.sql, sorted
// by version
func loadMigrations(fsys fs.FS) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, file := range names {
		prefix, name, _ := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: name must start with a positive version number", file)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, file, version)
		}
		seen[version] = file

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
