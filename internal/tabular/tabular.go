// ABOUTME: Store interface and shared types for generic named tables of text rows
// ABOUTME: Defines Row, format hints, sentinel errors and identifier validation

package tabular

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrTableNotFound is returned when a table has not been created.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound is returned by UpdateRow for an unknown row index.
	ErrRowNotFound = errors.New("row not found")

	// ErrUnknownColumn is returned when a field or hint names a column the
	// table does not declare.
	ErrUnknownColumn = errors.New("unknown column")
)

// Format is a per-column storage hint.
type Format string

// FormatText keeps the cell verbatim (no numeric coercion).
const FormatText Format = "@"

// Row is one record read from a table.
type Row struct {
	Index  int64
	Values map[string]string
}

// Get returns the cell for column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// Store is generic read/append access to named tables.
type Store interface {
	EnsureTable(ctx context.Context, name string, columns []string) error
	ReadTable(ctx context.Context, name string) ([]Row, error)
	AppendRow(ctx context.Context, name string, values []string) error
	AppendObject(ctx context.Context, name string, fields map[string]string, formats map[string]Format) error
	UpdateRow(ctx context.Context, name string, index int64, values []string) error
	Ping(ctx context.Context) error
	Close() error
}

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// indexColumn is reserved for the row index in SQL tables.
const indexColumn = "row_index"

func validateIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	if name == indexColumn {
		return fmt.Errorf("%s name %q is reserved", kind, name)
	}
	return nil
}

func validateColumns(columns []string) error {
	if len(columns) == 0 {
		return errors.New("at least one column is required")
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if err := validateIdent("column", c); err != nil {
			return err
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	return nil
}

// orderObject lays fields out in column order, rejecting unknown columns
// and unknown format hints.
func orderObject(columns []string, fields map[string]string, formats map[string]Format) ([]string, error) {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for k := range fields {
		if !known[k] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
	}
	for k, f := range formats {
		if !known[k] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
		if f != FormatText {
			return nil, fmt.Errorf("unsupported format %q for column %s", f, k)
		}
	}
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = fields[c]
	}
	return values, nil
}

func checkWidth(name string, columns, values []string) error {
	if len(values) != len(columns) {
		return fmt.Errorf("table %s has %d columns, got %d values", name, len(columns), len(values))
	}
	return nil
}
