// Package store runs compiled filter queries against a database/sql backend.
//
// Three drivers are registered: sqlite3 (mattn/go-sqlite3), pgx
// (jackc/pgx/v5/stdlib) and mysql (go-sql-driver/mysql). SQLite connections
// are configured the same way on every open:
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Rows come back as ordered column/value pairs so that results can be
// compared and printed without knowing the table shape in advance.
//
// The optional run log (relfilter_runs) records each executed request by its
// canonical fingerprint. Runs are ordered by seq, never by wall time.
package store
