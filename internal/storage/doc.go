// Package storage persists reminders.
//
// Drivers:
//   - "sqlite": modernc.org/sqlite database file (default)
//   - "postgres": PostgreSQL through pgx, schema managed by golang-migrate
//   - "file": JSON snapshot + append-only journal, no database needed
//   - "memory": the file driver without persistence (tests, dry runs)
//
// Every driver validates records through the reminder enumerations; a row
// with an unknown status, priority or recurrence is an error from Get and is
// skipped with a warning by the list operations.
package storage
