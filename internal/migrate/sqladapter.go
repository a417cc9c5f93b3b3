// ABOUTME: database/sql migration adapter using the SQLite dialect
// ABOUTME: Applies each migration and its metadata record in one transaction

package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultTable is the metadata table used when none is configured.
const DefaultTable = "schema_migrations"

// SQLAdapter applies migrations through database/sql.
type SQLAdapter struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// NewSQLAdapter creates an adapter recording into DefaultTable.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, table: DefaultTable, now: time.Now}
}

// WithTable returns a copy of the adapter that records into table.
func (a *SQLAdapter) WithTable(table string) *SQLAdapter {
	cp := *a
	cp.table = table
	return &cp
}

// EnsureMetadataTable creates the metadata table if it does not exist.
func (a *SQLAdapter) EnsureMetadataTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`, a.table)
	_, err := a.db.ExecContext(ctx, query)
	return err
}

// ListAppliedMigrations returns every recorded migration keyed by version.
func (a *SQLAdapter) ListAppliedMigrations(ctx context.Context) (map[int64]AppliedMigration, error) {
	query := fmt.Sprintf(`SELECT version, checksum, applied_at FROM %s`, a.table)
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]AppliedMigration)
	for rows.Next() {
		var rec AppliedMigration
		var appliedAtStr string
		if err := rows.Scan(&rec.Version, &rec.Checksum, &appliedAtStr); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		rec.AppliedAt, err = time.Parse(time.RFC3339, appliedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing applied_at for version %d: %w", rec.Version, err)
		}
		applied[rec.Version] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applied migrations: %w", err)
	}
	return applied, nil
}

// ApplyMigrationSQL runs the migration's statements and records the version
// in one transaction, so a version is never applied without its record.
func (a *SQLAdapter) ApplyMigrationSQL(ctx context.Context, m Migration) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, a.recordQuery(), a.recordArgs(m)...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("recording version %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// RecordAppliedMigration inserts the migration into the metadata table. A
// version ApplyMigrationSQL already recorded is left as it is.
func (a *SQLAdapter) RecordAppliedMigration(ctx context.Context, m Migration) error {
	_, err := a.db.ExecContext(ctx, a.recordQuery(), a.recordArgs(m)...)
	return err
}

func (a *SQLAdapter) recordQuery() string {
	return fmt.Sprintf(`INSERT OR IGNORE INTO %s (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`, a.table)
}

func (a *SQLAdapter) recordArgs(m Migration) []any {
	return []any{m.Version, m.Name, m.Checksum, a.now().UTC().Format(time.RFC3339)}
}
