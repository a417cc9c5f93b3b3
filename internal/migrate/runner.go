// ABOUTME: Migration runner that validates a plan and applies pending versions in order
// ABOUTME: Detects checksum drift on applied versions and halts on the first failure

package migrate

import (
	"context"
	"fmt"
	"log/slog"
)

// Adapter is the dialect-specific side of a migration run.
type Adapter interface {
	// EnsureMetadataTable creates the applied-migrations table if missing.
	EnsureMetadataTable(ctx context.Context) error
	// ListAppliedMigrations returns applied migrations keyed by version.
	ListAppliedMigrations(ctx context.Context) (map[int64]AppliedMigration, error)
	// ApplyMigrationSQL runs the statements atomically, rolling back on failure.
	ApplyMigrationSQL(ctx context.Context, m Migration) error
	// RecordAppliedMigration stores the version, checksum and apply time.
	RecordAppliedMigration(ctx context.Context, m Migration) error
}

// Plan describes one migration run.
type Plan struct {
	Migrations []Migration
	Adapter    Adapter
	// TargetVersion, when non-nil, is the highest version to apply.
	TargetVersion *int64
	Logger        *slog.Logger
}

// Result reports what a run did.
type Result struct {
	AppliedVersions []int64
	SkippedVersions []int64
	// CurrentVersion is the declared schema version: the target when one was
	// given, otherwise the highest version in the plan.
	CurrentVersion int64
}

// Validate checks that versions are unique and strictly ascending.
func Validate(migrations []Migration) error {
	seen := make(map[int64]struct{}, len(migrations))
	for i, m := range migrations {
		if _, dup := seen[m.Version]; dup {
			return &ValidationError{Version: m.Version, Reason: "duplicate version"}
		}
		seen[m.Version] = struct{}{}
		if i > 0 && m.Version <= migrations[i-1].Version {
			return &ValidationError{
				Version: m.Version,
				Reason:  fmt.Sprintf("out of order: follows version %d", migrations[i-1].Version),
			}
		}
	}
	return nil
}

// Run validates the plan and applies every pending migration up to the target.
func Run(ctx context.Context, plan Plan) (*Result, error) {
	if plan.Adapter == nil {
		return nil, fmt.Errorf("migration plan has no adapter")
	}
	logger := plan.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migrate")

	if err := Validate(plan.Migrations); err != nil {
		return nil, err
	}

	if err := plan.Adapter.EnsureMetadataTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}

	applied, err := plan.Adapter.ListAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing applied migrations: %w", err)
	}

	res := &Result{
		AppliedVersions: []int64{},
		SkippedVersions: []int64{},
	}
	if plan.TargetVersion != nil {
		res.CurrentVersion = *plan.TargetVersion
	} else if n := len(plan.Migrations); n > 0 {
		res.CurrentVersion = plan.Migrations[n-1].Version
	}

	for _, m := range plan.Migrations {
		if plan.TargetVersion != nil && m.Version > *plan.TargetVersion {
			break
		}

		if prev, ok := applied[m.Version]; ok {
			if prev.Checksum != m.Checksum {
				return nil, &ValidationError{
					Version: m.Version,
					Reason:  fmt.Sprintf("checksum drift: applied %s, current %s", prev.Checksum, m.Checksum),
				}
			}
			res.SkippedVersions = append(res.SkippedVersions, m.Version)
			continue
		}

		if err := plan.Adapter.ApplyMigrationSQL(ctx, m); err != nil {
			return nil, &ApplyError{Version: m.Version, Err: err}
		}
		if err := plan.Adapter.RecordAppliedMigration(ctx, m); err != nil {
			return nil, &ApplyError{Version: m.Version, Err: fmt.Errorf("recording: %w", err)}
		}
		res.AppliedVersions = append(res.AppliedVersions, m.Version)
		logger.Info("applied migration", "version", m.Version, "name", m.Name)
	}

	return res, nil
}
