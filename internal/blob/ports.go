// Package blob defines the key-value port the bill store persists through.
//
// Values are opaque JSON-encoded text. Implementations live in subpackages:
// memory, sqlite, redis and postgres.
package blob

import (
	"context"
	"errors"
)

// Keys used by the bill store.
const (
	KeyBills     = "billTrackerData"
	KeyBillTypes = "billTrackerTypes"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("blob: key not found")

type (
	// Reader loads a blob by key.
	Reader interface {
		Get(ctx context.Context, key string) ([]byte, error)
	}

	// Writer replaces the blob stored under key.
	Writer interface {
		Set(ctx context.Context, key string, value []byte) error
	}

	// ReadWriter is what the bill store needs at runtime.
	ReadWriter interface {
		Reader
		Writer
	}

	// Store is a ReadWriter that owns a connection.
	Store interface {
		ReadWriter
		Close() error
	}
)
