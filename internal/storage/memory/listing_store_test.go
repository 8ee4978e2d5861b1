package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
)

func pk(b byte) domain.PubKey {
	var k domain.PubKey
	k[0] = b
	return k
}

func listing(addr, config byte, approved bool) *domain.Listing {
	return &domain.Listing{
		Address: pk(addr),
		ListingRequest: domain.ListingRequest{
			Name:          "Collection",
			AdminConfig:   pk(config),
			IsDaoApproved: approved,
		},
	}
}

func TestListingStoreUpsertAndGet(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, listing(1, 9, false)))

	got, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	assert.Equal(t, "Collection", got.Name)
	assert.False(t, got.IsDaoApproved)

	// Upsert replaces the snapshot.
	require.NoError(t, store.Upsert(ctx, listing(1, 9, true)))
	got, err = store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	assert.True(t, got.IsDaoApproved)
}

func TestListingStoreGetAbsent(t *testing.T) {
	store := NewListingStore()

	_, err := store.GetByAddress(context.Background(), pk(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStoreRejectsInvalid(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Upsert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Upsert(ctx, &domain.Listing{}), storage.ErrInvalidInput)
}

func TestListingStoreListByConfigAndStatus(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, listing(1, 9, true)))
	require.NoError(t, store.Upsert(ctx, listing(2, 9, false)))
	require.NoError(t, store.Upsert(ctx, listing(3, 8, true)))

	all, err := store.ListByConfig(ctx, pk(9))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	approved, err := store.ListByStatus(ctx, pk(9), true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, pk(1), approved[0].Address)

	pending, err := store.ListByStatus(ctx, pk(9), false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pk(2), pending[0].Address)
}

func TestListingStoreDelete(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, listing(1, 9, false)))
	require.NoError(t, store.Delete(ctx, pk(1)))

	_, err := store.GetByAddress(ctx, pk(1))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(ctx, pk(1)))
}

func TestListingStoreReturnsCopies(t *testing.T) {
	store := NewListingStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, listing(1, 9, false)))

	got, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	assert.Equal(t, "Collection", again.Name)
}
