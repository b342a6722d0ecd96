// Package tabular provides generic access to named tables of text records.
//
// # Overview
//
// A table is an ordered list of rows. Every row holds one string cell per
// declared column and an index assigned at append time. The package knows
// nothing about the records it stores; callers map their own types onto
// columns.
//
// # Interface
//
// The Store interface is implemented by:
//
//   - SQLStore: one SQL table per logical table, every column TEXT.
//     Supported drivers are "sqlite" (modernc.org/sqlite, the default),
//     "sqlite3" (github.com/mattn/go-sqlite3) and "pgx"
//     (github.com/jackc/pgx/v5 stdlib, PostgreSQL).
//   - MemoryStore: maps guarded by a mutex, for tests and throwaway runs.
//
// # Rows
//
// ReadTable returns rows in append order. AppendRow takes values in the
// declared column order. AppendObject takes a column-keyed map; absent
// columns are written empty. UpdateRow replaces every cell of one row.
//
// # Format Hints
//
// AppendObject accepts per-column format hints. FormatText ("@") marks a
// column that must be stored verbatim, such as postal codes and phone
// numbers with leading zeros. All cells are text, so the SQL store only
// validates hints; MemoryStore records them.
//
// # Errors
//
// Operations on a table that was never created return ErrTableNotFound.
// Table and column names must be lower-case identifiers because they are
// interpolated into SQL statements.
package tabular
