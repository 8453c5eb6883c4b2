package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one numbered SQL file, e.g. 001_batch_runs.sql
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Migrator applies pending migrations and records them in schema_migrations.
// A recorded migration whose file has since changed fails the run.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, logger: logger}
}

// MigrateDir applies pending migrations found in a directory on disk.
func (m *Migrator) MigrateDir(ctx context.Context, dir string) (int, error) {
	m.logger.Info("Loading migrations from directory", zap.String("dir", dir))
	return m.Migrate(ctx, os.DirFS(dir))
}

// Migrate applies every pending migration in fsys and returns how many ran.
func (m *Migrator) Migrate(ctx context.Context, fsys fs.FS) (int, error) {
	if _, err := m.db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	recorded, err := m.recorded(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	pending, err := LoadMigrations(fsys)
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	applied := 0
	for _, mig := range pending {
		sum, done := recorded[mig.Version]
		if done {
			if sum != "" && sum != mig.Checksum {
				return applied, fmt.Errorf("migration %d (%s) changed after it was applied", mig.Version, mig.Name)
			}
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))

		if err := m.apply(ctx, mig); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		applied++
	}

	m.logger.Info("Database schema up to date",
		zap.Int("applied", applied),
		zap.Int("known", len(pending)))
	return applied, nil
}

const schemaMigrationsDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
`

// recorded maps applied versions to their stored checksums
func (m *Migrator) recorded(ctx context.Context) (map[int]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			version int
			sum     string
		)
		if err := rows.Scan(&version, &sum); err != nil {
			return nil, err
		}
		out[version] = sum
	}
	return out, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
			mig.Version, mig.Name, mig.Checksum)
		if err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// LoadMigrations reads the top-level .sql files of fsys ordered by version.
// Two files sharing a version are rejected.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	var out []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}

		version, name, err := parseMigrationName(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}
		digest := sha256.Sum256(content)

		out = append(out, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(digest[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseMigrationName splits "003_add_index.sql" into 3 and "add_index".
func parseMigrationName(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")
	prefix, name, _ := strings.Cut(base, "_")
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("invalid migration filename format: %s", filename)
	}
	return version, name, nil
}
