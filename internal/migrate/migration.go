// ABOUTME: Migration types, typed errors, checksums and the file loader
// ABOUTME: Loads <version>_<name>.sql files from any fs.FS

package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Migration is one versioned SQL change.
type Migration struct {
	Version  int64
	Name     string
	SQL      string
	Checksum string
}

// New builds a migration and computes its checksum.
func New(version int64, name, sql string) Migration {
	return Migration{Version: version, Name: name, SQL: sql, Checksum: Checksum(sql)}
}

// AppliedMigration is the adapter's record of a migration that already ran.
type AppliedMigration struct {
	Version   int64
	Checksum  string
	AppliedAt time.Time
}

// Checksum returns the hex SHA-256 of the statement text.
func Checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// ValidationError reports a plan that must not run: duplicate or unordered
// versions, or drift between an applied checksum and the current definition.
type ValidationError struct {
	Version int64
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("migration %d: %s", e.Version, e.Reason)
}

// ApplyError wraps a statement failure with the version that caused it.
type ApplyError struct {
	Version int64
	Err     error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("applying migration %d: %v", e.Version, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// fileNamePattern matches <version>_<name>.sql.
var fileNamePattern = regexp.MustCompile(`^([0-9]+)_([A-Za-z0-9_\-]+)\.sql$`)

// Load reads every .sql file in dir and returns them sorted by version.
// Files that do not match <version>_<name>.sql fail the load; other
// extensions are ignored.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations dir: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("migration file %q: name must be <version>_<name>.sql", entry.Name())
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration file %q: parsing version: %w", entry.Name(), err)
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading migration %q: %w", entry.Name(), err)
		}
		migrations = append(migrations, New(version, m[2], string(data)))
	}

	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
