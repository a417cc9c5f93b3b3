// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite or mattn/go-sqlite3
// ABOUTME: Provides view-data and user persistence with schema applied through the migration runner

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/2389/viewgate/internal/migrate"
)

// Supported database/sql driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the store's schema migrations in version order.
func Migrations() ([]migrate.Migration, error) {
	return migrate.Load(migrationFS, "migrations")
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store at the given path using the pure-Go driver.
// The schema is migrated to the latest version.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return OpenSQLiteStore(context.Background(), DriverSQLite, path, true)
}

// OpenSQLiteStore opens the database with the named driver. When migrate is
// false the schema is left untouched, which the migrate CLI command uses to
// run the plan itself.
func OpenSQLiteStore(ctx context.Context, driver, path string, runMigrations bool) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	inMemory := path == ":memory:" || strings.HasPrefix(path, "file::memory:")
	if !inMemory {
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	if !inMemory {
		// Enable WAL mode for better concurrent performance
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if runMigrations {
		if _, err := s.Migrate(ctx, nil); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	logger.Info("SQLite store initialized", "path", path, "driver", driver)
	return s, nil
}

// Migrate applies the embedded schema migrations up to target (all when nil).
func (s *SQLiteStore) Migrate(ctx context.Context, target *int64) (*migrate.Result, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	return migrate.Run(ctx, migrate.Plan{
		Migrations:    migrations,
		Adapter:       migrate.NewSQLAdapter(s.db),
		TargetVersion: target,
		Logger:        s.logger,
	})
}

// DB exposes the underlying connection pool. Views receive it as their opaque
// database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// LoadViewData retrieves the stored view data for a session and view.
// Returns ErrNotFound if nothing has been stored yet.
func (s *SQLiteStore) LoadViewData(ctx context.Context, sessionID, viewKey string) (*ViewRecord, error) {
	query := `SELECT data, updated_at FROM view_data WHERE session_id = ? AND view_key = ?`

	rec := ViewRecord{SessionID: sessionID, ViewKey: viewKey}
	var updatedAtStr string
	err := s.db.QueryRowContext(ctx, query, sessionID, viewKey).Scan(&rec.Data, &updatedAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying view data: %w", err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &rec, nil
}

// SaveViewData inserts or overwrites the view data for a session and view.
func (s *SQLiteStore) SaveViewData(ctx context.Context, sessionID, viewKey string, data []byte) error {
	query := `
		INSERT INTO view_data (session_id, view_key, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, view_key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		sessionID,
		viewKey,
		data,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving view data: %w", err)
	}

	s.logger.Debug("saved view data", "session_id", sessionID, "view", viewKey, "size", len(data))
	return nil
}

// DeleteViewData removes the stored view data for a session and view.
func (s *SQLiteStore) DeleteViewData(ctx context.Context, sessionID, viewKey string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM view_data WHERE session_id = ? AND view_key = ?`,
		sessionID, viewKey,
	)
	if err != nil {
		return fmt.Errorf("deleting view data: %w", err)
	}
	return nil
}

// CreateUser stores a new user. Returns ErrDuplicateUser if the username is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	roles, err := json.Marshal(nonNilRoles(user.Roles))
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}

	query := `
		INSERT INTO users (id, username, password_hash, roles, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		string(roles),
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", user.ID, "username", user.Username)
	return nil
}

// GetUserByUsername retrieves a user by username.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, password_hash, roles, created_at
		FROM users
		WHERE username = ?
	`

	var user User
	var rolesStr, createdAtStr string
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&rolesStr,
		&createdAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	if err := json.Unmarshal([]byte(rolesStr), &user.Roles); err != nil {
		return nil, fmt.Errorf("decoding roles: %w", err)
	}
	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &user, nil
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
