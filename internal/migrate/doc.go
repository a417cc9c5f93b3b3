// Package migrate applies versioned SQL migrations with checksum drift detection.
//
// # Plans
//
// A plan is an ordered list of migrations plus a dialect adapter:
//
//	migrations, err := migrate.Load(migrationsFS, "migrations")
//	res, err := migrate.Run(ctx, migrate.Plan{
//	    Migrations: migrations,
//	    Adapter:    migrate.NewSQLAdapter(db),
//	})
//
// Run validates the whole plan before touching the database: versions must be
// unique and strictly ascending. It then ensures the metadata table exists,
// loads the applied set and walks the plan in order. Applied versions must
// carry the same checksum as their current definition; a mismatch is drift
// and stops the run. New versions are applied one at a time, each inside the
// adapter's transaction, and recorded. The first failure stops the run.
//
// # Files
//
// Load reads files named <version>_<name>.sql. The version is a decimal
// prefix; anything else is a loading error. The checksum is the hex SHA-256
// of the file content.
//
// # Concurrency
//
// Run assumes it is the only migrator talking to the database.
package migrate
