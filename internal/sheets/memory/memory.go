package memory

import (
	"context"
	"fmt"
	"sync"

	"receitas/internal/core"
	ports "receitas/internal/sheets"
)

// Mirror keeps sheet rows in memory, one per entry id, in insertion order.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Entry
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// UpsertEntry replaces the row for e.ID or appends a new one.
func (m *Mirror) UpsertEntry(_ context.Context, e core.Entry) (string, error) {
	if e.IsNew() {
		return "", fmt.Errorf("mirror entry without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == e.ID {
			m.rows[i] = e
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, e)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

func (m *Mirror) DeleteEntry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored entries.
func (m *Mirror) Rows() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Entry(nil), m.rows...)
}
