package clickhouse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-registry/internal/domain"
	"listing-registry/internal/storage"
	chstore "listing-registry/internal/storage/clickhouse"
)

func pk(b byte) domain.PubKey {
	var k domain.PubKey
	k[0] = b
	return k
}

func testTransition(sig string, addr byte, op string, ts int64) *domain.Transition {
	return &domain.Transition{
		Signature:     sig,
		Operation:     op,
		Address:       pk(addr),
		Actor:         pk(100),
		AdminConfig:   pk(9),
		LamportsDelta: -1_000_000_000,
		Slot:          12345,
		Timestamp:     ts,
	}
}

func TestTransitionStore_InsertAndGetByAddress(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTransitionStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testTransition("sig2", 1, domain.OpApprove, 200)))
	require.NoError(t, store.Insert(ctx, testTransition("sig1", 1, domain.OpRequestListing, 100)))
	require.NoError(t, store.Insert(ctx, testTransition("sig3", 2, domain.OpRequestListing, 150)))

	trs, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	require.Len(t, trs, 2)

	// Ordered by timestamp ASC.
	assert.Equal(t, domain.OpRequestListing, trs[0].Operation)
	assert.Equal(t, domain.OpApprove, trs[1].Operation)
	assert.Equal(t, pk(100), trs[0].Actor)
	assert.Equal(t, pk(9), trs[0].AdminConfig)
	assert.Equal(t, int64(-1_000_000_000), trs[0].LamportsDelta)
	assert.Equal(t, int64(12345), trs[0].Slot)
}

func TestTransitionStore_RejectsDuplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTransitionStore(conn)
	ctx := context.Background()

	tr := testTransition("sig1", 1, domain.OpApprove, 100)
	require.NoError(t, store.Insert(ctx, tr))
	assert.ErrorIs(t, store.Insert(ctx, tr), storage.ErrDuplicateKey)

	// Same transaction, different operation is fine.
	require.NoError(t, store.Insert(ctx, testTransition("sig1", 1, domain.OpSetEnabled, 100)))
}

func TestTransitionStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTransitionStore(conn)
	ctx := context.Background()

	batch := []*domain.Transition{
		testTransition("sig1", 1, domain.OpRequestListing, 100),
		testTransition("sig2", 1, domain.OpApprove, 200),
		testTransition("sig3", 2, domain.OpRequestListing, 300),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	trs, err := store.GetByAddress(ctx, pk(1))
	require.NoError(t, err)
	assert.Len(t, trs, 2)

	// Intra-batch duplicates fail the whole batch.
	dup := []*domain.Transition{
		testTransition("sig4", 3, domain.OpApprove, 400),
		testTransition("sig4", 3, domain.OpApprove, 400),
	}
	assert.ErrorIs(t, store.InsertBulk(ctx, dup), storage.ErrDuplicateKey)
}

func TestTransitionStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTransitionStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.Transition{
		testTransition("sig1", 1, domain.OpRequestListing, 100),
		testTransition("sig2", 1, domain.OpApprove, 200),
		testTransition("sig3", 2, domain.OpRequestRefund, 300),
	}))

	trs, err := store.GetByTimeRange(ctx, 100, 200)
	require.NoError(t, err)
	assert.Len(t, trs, 2)

	trs, err = store.GetByTimeRange(ctx, 250, 400)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, "sig3", trs[0].Signature)
}

func TestTransitionStore_RejectsInvalid(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewTransitionStore(conn)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.Transition{Signature: "x"}), storage.ErrInvalidInput)
}
