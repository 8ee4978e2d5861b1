package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

func transition(sig string, addr byte, op string, ts int64) *domain.Transition {
	return &domain.Transition{
		Signature:   sig,
		Operation:   op,
		Address:     pk(addr),
		Actor:       pk(100),
		AdminConfig: pk(9),
		Timestamp:   ts,
	}
}

func TestTransitionStoreInsertAndGet(t *testing.T) {
	store := NewTransitionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, transition("sig2", 1, domain.OpApprove, 200)))
	require.NoError(t, store.Insert(ctx, transition("sig1", 1, domain.OpRequestListing, 100)))
	require.NoError(t, store.Insert(ctx, transition("sig3", 2, domain.OpRequestListing, 150)))

	trs, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	require.Len(t, trs, 2)

	// Ordered by timestamp ASC.
	assert.Equal(t, domain.OpRequestListing, trs[0].Operation)
	assert.Equal(t, domain.OpApprove, trs[1].Operation)
}

func TestTransitionStoreRejectsDuplicates(t *testing.T) {
	store := NewTransitionStore()
	ctx := context.Background()

	tr := transition("sig1", 1, domain.OpApprove, 100)
	require.NoError(t, store.Insert(ctx, tr))
	assert.ErrorIs(t, store.Insert(ctx, tr), storage.ErrDuplicateKey)

	// Same transaction, different operation is fine.
	require.NoError(t, store.Insert(ctx, transition("sig1", 1, domain.OpSetEnabled, 100)))
}

func TestTransitionStoreInsertBulkAtomic(t *testing.T) {
	store := NewTransitionStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, transition("sig1", 1, domain.OpApprove, 100)))

	batch := []*domain.Transition{
		transition("sig2", 1, domain.OpSetEnabled, 200),
		transition("sig1", 1, domain.OpApprove, 100), // duplicate
	}
	assert.ErrorIs(t, store.InsertBulk(ctx, batch), storage.ErrDuplicateKey)

	// Nothing from the failed batch landed.
	trs, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	assert.Len(t, trs, 1)
}

func TestTransitionStoreGetByTimeRange(t *testing.T) {
	store := NewTransitionStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Transition{
		transition("sig1", 1, domain.OpRequestListing, 100),
		transition("sig2", 1, domain.OpApprove, 200),
		transition("sig3", 2, domain.OpRequestListing, 300),
	}))

	trs, err := store.GetByTimeRange(ctx, 100, 200)
	require.NoError(t, err)
	assert.Len(t, trs, 2)

	trs, err = store.GetByTimeRange(ctx, 250, 400)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "sig3", trs[0].Signature)
}

func TestTransitionStoreRejectsInvalid(t *testing.T) {
	store := NewTransitionStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Transition{Signature: "x"}), storage.ErrInvalidInput)
}
