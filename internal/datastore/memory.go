package datastore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store. It backs the reconciler tests and the
// scheduler's dry-run mode; filter semantics match the postgres
// implementation (equality only, nil matches a nil value).
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row

	// FailHook, when set, is consulted before every operation with the
	// operation name ("query", "insert", "update", "delete") and table.
	// A non-nil return is surfaced as the operation's error.
	FailHook func(op, table string) error
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

func (m *Memory) fail(op, table string) error {
	if m.FailHook == nil {
		return nil
	}
	return m.FailHook(op, table)
}

func (m *Memory) Query(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if err := m.fail("query", table); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Row
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			result = append(result, copyRow(row))
		}
	}
	return result, nil
}

func (m *Memory) Insert(ctx context.Context, table string, row Row) error {
	if err := m.fail("insert", table); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[table] = append(m.tables[table], copyRow(row))
	return nil
}

func (m *Memory) Update(ctx context.Context, table string, filter Filter, patch Row) error {
	if err := m.fail("update", table); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.tables[table] {
		if matches(row, filter) {
			for k, v := range patch {
				row[k] = v
			}
		}
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, table string, filter Filter) error {
	if err := m.fail("delete", table); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	for _, row := range m.tables[table] {
		if !matches(row, filter) {
			kept = append(kept, row)
		}
	}
	m.tables[table] = kept
	return nil
}

// Count returns the number of rows matching the filter, ignoring any
// failure hook. Test helper.
func (m *Memory) Count(table string, filter Filter) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			n++
		}
	}
	return n
}

func matches(row Row, filter Filter) bool {
	for k, want := range filter {
		if row[k] != want {
			return false
		}
	}
	return true
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
