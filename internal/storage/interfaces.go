package storage

import (
	"context"

	"listing-registry/internal/domain"
)

// ListingStore holds the latest known snapshot of each listing request
// record. The mirror overwrites snapshots as the ledger changes; closed
// records are deleted.
type ListingStore interface {
	// Upsert writes or replaces the snapshot at the listing's address.
	Upsert(ctx context.Context, l *domain.Listing) error

	// GetByAddress retrieves a snapshot. Returns ErrNotFound if absent.
	GetByAddress(ctx context.Context, address domain.PubKey) (*domain.Listing, error)

	// ListByConfig retrieves all snapshots under a registry config,
	// ordered by address.
	ListByConfig(ctx context.Context, config domain.PubKey) ([]*domain.Listing, error)

	// ListByStatus retrieves snapshots under a config filtered by the
	// approval flag, ordered by address.
	ListByStatus(ctx context.Context, config domain.PubKey, approved bool) ([]*domain.Listing, error)

	// Delete removes the snapshot of a closed record. Deleting an
	// absent snapshot is not an error.
	Delete(ctx context.Context, address domain.PubKey) error
}

// TransitionStore is the append-only audit log of workflow state
// changes and their escrow movements.
type TransitionStore interface {
	// Insert appends one transition.
	Insert(ctx context.Context, tr *domain.Transition) error

	// InsertBulk appends multiple transitions in one batch.
	InsertBulk(ctx context.Context, trs []*domain.Transition) error

	// GetByAddress retrieves all transitions of a record, ordered by
	// timestamp ASC.
	GetByAddress(ctx context.Context, address domain.PubKey) ([]*domain.Transition, error)

	// GetByTimeRange retrieves transitions within [start, end] Unix
	// milliseconds (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Transition, error)
}
