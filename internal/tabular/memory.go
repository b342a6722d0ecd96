// ABOUTME: In-memory implementation of the tabular Store for tests and throwaway runs
// ABOUTME: Thread-safe via RWMutex, returns copies so callers cannot alias stored rows

package tabular

import (
	"context"
	"fmt"
	"sync"
)

type memTable struct {
	columns []string
	rows    []Row
	next    int64
	formats map[string]Format
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable

	// FailAppend, when set, is consulted before every append and its error
	// returned instead of writing. Tests use it to simulate partial writes.
	FailAppend func(table string) error
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (m *MemoryStore) EnsureTable(_ context.Context, name string, columns []string) error {
	if err := validateIdent("table", name); err != nil {
		return err
	}
	if err := validateColumns(columns); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; ok {
		return nil
	}
	m.tables[name] = &memTable{
		columns: append([]string(nil), columns...),
		next:    1,
		formats: make(map[string]Format),
	}
	return nil
}

func (m *MemoryStore) table(name string) (*memTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}

func (m *MemoryStore) ReadTable(_ context.Context, name string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(name)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = copyRow(r)
	}
	return out, nil
}

func (m *MemoryStore) AppendRow(_ context.Context, name string, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(name)
	if err != nil {
		return err
	}
	if err := checkWidth(name, t.columns, values); err != nil {
		return err
	}
	return m.appendLocked(name, t, values)
}

func (m *MemoryStore) AppendObject(_ context.Context, name string, fields map[string]string, formats map[string]Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(name)
	if err != nil {
		return err
	}
	values, err := orderObject(t.columns, fields, formats)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	for c, f := range formats {
		t.formats[c] = f
	}
	return m.appendLocked(name, t, values)
}

func (m *MemoryStore) appendLocked(name string, t *memTable, values []string) error {
	if m.FailAppend != nil {
		if err := m.FailAppend(name); err != nil {
			return err
		}
	}
	r := Row{Index: t.next, Values: make(map[string]string, len(t.columns))}
	for i, c := range t.columns {
		r.Values[c] = values[i]
	}
	t.next++
	t.rows = append(t.rows, r)
	return nil
}

func (m *MemoryStore) UpdateRow(_ context.Context, name string, index int64, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(name)
	if err != nil {
		return err
	}
	if err := checkWidth(name, t.columns, values); err != nil {
		return err
	}
	for i := range t.rows {
		if t.rows[i].Index != index {
			continue
		}
		for j, c := range t.columns {
			t.rows[i].Values[c] = values[j]
		}
		return nil
	}
	return fmt.Errorf("%w: %s row %d", ErrRowNotFound, name, index)
}

// Formats returns the format hints recorded for a table.
func (m *MemoryStore) Formats(name string) map[string]Format {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return nil
	}
	out := make(map[string]Format, len(t.formats))
	for k, v := range t.formats {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func copyRow(r Row) Row {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	return Row{Index: r.Index, Values: values}
}
