package storage

import (
	"context"
	"errors"

	"financeiro/internal/core"
)

// ErrMalformedStore reports a backing store that exists but does not hold a
// valid ledger document.
var ErrMalformedStore = errors.New("malformed store")

// Repository persists the whole ledger document at once.
type Repository interface {
	// Load returns the persisted document, or an empty one when nothing has
	// been persisted yet.
	Load(ctx context.Context) (core.Document, error)
	// Save replaces the persisted document with doc.
	Save(ctx context.Context, doc core.Document) error
	Close() error
}
