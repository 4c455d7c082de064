// Package sqlite provides the SQLite-backed stage run journal.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Every stage invocation is recorded with
// its input, output, model, prompt version, outcome counts and final status, so the
// lineage of each annotation file can be traced after the fact.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory, applied in order and tracked in schema_migrations.
//
// # Data Location
//
// The database is stored at <data-dir>/logs/runs.db
package sqlite
