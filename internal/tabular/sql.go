// ABOUTME: SQL implementation of the tabular Store for SQLite and PostgreSQL
// ABOUTME: Maps each logical table to a SQL table of TEXT columns plus a row index

package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "pgx"
)

type dialect struct {
	primaryKey   string
	columnsQuery string
	postgres     bool
}

func (d dialect) placeholder(n int) string {
	if d.postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var (
	sqliteDialect = dialect{
		primaryKey:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		columnsQuery: `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
	}
	postgresDialect = dialect{
		primaryKey: "BIGSERIAL PRIMARY KEY",
		columnsQuery: `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`,
		postgres: true,
	}
)

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	driver  string
	dialect dialect
	logger  *slog.Logger

	mu      sync.RWMutex
	columns map[string][]string
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database identified by driver and dsn.
// For the SQLite drivers dsn is a file path; parent directories are
// created if needed and ":memory:" is accepted.
func Open(driver, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "tabular")

	var d dialect
	switch driver {
	case DriverSQLite, DriverSQLite3:
		d = sqliteDialect
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	case DriverPostgres:
		d = postgresDialect
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if !d.postgres {
		// A single connection keeps ":memory:" databases shared and
		// serializes SQLite writers.
		db.SetMaxOpenConns(1)

		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	logger.Info("tabular store initialized", "driver", driver)
	return &SQLStore{
		db:      db,
		driver:  driver,
		dialect: d,
		logger:  logger,
		columns: make(map[string][]string),
	}, nil
}

// DB exposes the underlying handle so other stores can share it.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// EnsureTable creates the table if it does not exist.
func (s *SQLStore) EnsureTable(ctx context.Context, name string, columns []string) error {
	if err := validateIdent("table", name); err != nil {
		return err
	}
	if err := validateColumns(columns); err != nil {
		return err
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, fmt.Sprintf("%q %s", indexColumn, s.dialect.primaryKey))
	for _, c := range columns {
		defs = append(defs, fmt.Sprintf("%q TEXT NOT NULL DEFAULT ''", c))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n\t%s\n)", name, strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.columns, name)
	s.mu.Unlock()

	s.logger.Debug("ensured table", "table", name, "columns", len(columns))
	return nil
}

// tableColumns returns the declared columns of a table, excluding the row
// index. Results are cached after the first lookup.
func (s *SQLStore) tableColumns(ctx context.Context, name string) ([]string, error) {
	if err := validateIdent("table", name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cols, ok := s.columns[name]
	s.mu.RUnlock()
	if ok {
		return cols, nil
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.columnsQuery, name)
	if err != nil {
		return nil, fmt.Errorf("looking up columns of %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		if c != indexColumn {
			cols = append(cols, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns of %s: %w", name, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	s.mu.Lock()
	s.columns[name] = cols
	s.mu.Unlock()
	return cols, nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// ReadTable returns every row of the table in append order.
func (s *SQLStore) ReadTable(ctx context.Context, name string) ([]Row, error) {
	cols, err := s.tableColumns(ctx, name)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %q, %s FROM %q ORDER BY %q", indexColumn, quoteAll(cols), name, indexColumn)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading table %s: %w", name, err)
	}
	defer rows.Close()

	var out []Row
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols)+1)
	for i := range cells {
		dest[i+1] = &cells[i]
	}
	for rows.Next() {
		var r Row
		dest[0] = &r.Index
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", name, err)
		}
		r.Values = make(map[string]string, len(cols))
		for i, c := range cols {
			r.Values[c] = cells[i].String
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table %s: %w", name, err)
	}
	return out, nil
}

// AppendRow inserts values in declared column order.
func (s *SQLStore) AppendRow(ctx context.Context, name string, values []string) error {
	cols, err := s.tableColumns(ctx, name)
	if err != nil {
		return err
	}
	if err := checkWidth(name, cols, values); err != nil {
		return err
	}
	return s.insert(ctx, name, cols, values)
}

// AppendObject inserts a column-keyed record.
func (s *SQLStore) AppendObject(ctx context.Context, name string, fields map[string]string, formats map[string]Format) error {
	cols, err := s.tableColumns(ctx, name)
	if err != nil {
		return err
	}
	values, err := orderObject(cols, fields, formats)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	return s.insert(ctx, name, cols, values)
}

func (s *SQLStore) insert(ctx context.Context, name string, cols, values []string) error {
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i := range cols {
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = values[i]
	}
	stmt := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)", name, quoteAll(cols), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("inserting into %s: %w", name, err)
	}
	return nil
}

// UpdateRow replaces every cell of the row with the given index.
func (s *SQLStore) UpdateRow(ctx context.Context, name string, index int64, values []string) error {
	cols, err := s.tableColumns(ctx, name)
	if err != nil {
		return err
	}
	if err := checkWidth(name, cols, values); err != nil {
		return err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%q = %s", c, s.dialect.placeholder(i+1))
		args = append(args, values[i])
	}
	args = append(args, index)
	stmt := fmt.Sprintf("UPDATE %q SET %s WHERE %q = %s", name, strings.Join(sets, ", "), indexColumn, s.dialect.placeholder(len(cols)+1))

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("updating %s row %d: %w", name, index, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s row %d", ErrRowNotFound, name, index)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
