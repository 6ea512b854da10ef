// Package memory is an in-process BillMirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"billtracker/internal/core"
	ports "billtracker/internal/sheets"
)

var (
	_ ports.BillMirror = (*Mirror)(nil)
	_ ports.BillReader = (*Mirror)(nil)
)

type Mirror struct {
	mu    sync.Mutex
	bills []core.Bill
	types []string
	count int
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Mirror(_ context.Context, bills []core.Bill, types []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills = slices.Clone(bills)
	m.types = slices.Clone(types)
	m.count++
	return nil
}

func (m *Mirror) ReadBills(_ context.Context) ([]core.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.bills), nil
}

// Types returns the last mirrored bill types.
func (m *Mirror) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.types)
}

// Count reports how many times Mirror has been called.
func (m *Mirror) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
