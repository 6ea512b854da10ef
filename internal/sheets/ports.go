package sheets

import (
	"context"

	"billtracker/internal/core"
)

// Ports for outbound adapters.
type (
	// BillMirror replaces the mirrored copy of the bill store with the
	// given snapshot.
	BillMirror interface {
		Mirror(ctx context.Context, bills []core.Bill, types []string) error
	}

	// BillReader reads the mirrored bills back.
	BillReader interface {
		ReadBills(ctx context.Context) ([]core.Bill, error)
	}
)
