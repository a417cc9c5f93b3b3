// Package store provides persistent storage for viewgate using SQLite.
//
// # Architecture
//
// The store package is interface-driven:
//
//   - ViewDataStore: load, save and delete the opaque view-data blob of a
//     (session, view) pair
//   - UserStore: accounts used for password login
//   - Store: both of the above plus Close
//
// SQLiteStore implements Store in a single struct. MockStore is an in-memory
// implementation for tests.
//
// # Schema
//
// The schema ships as embedded migration files under migrations/ and is
// applied through the migrate package when the store opens:
//
//	0001_create_view_data.sql  view_data(session_id, view_key, data, updated_at)
//	0002_create_users.sql      users(id, username, password_hash, roles, created_at)
//
// Applied versions are recorded in schema_migrations together with their
// checksums, so editing a shipped migration is detected as drift.
//
// # Drivers
//
// Two database/sql drivers are supported:
//
//   - "sqlite" (modernc.org/sqlite, pure Go, default)
//   - "sqlite3" (github.com/mattn/go-sqlite3, requires cgo)
//
// # Concurrency
//
// The pool is limited to a single connection. Each call is a single-row read
// or a single-row upsert; callers that need read-modify-write ordering hold
// the view lock.
package store
