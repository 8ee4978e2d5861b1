package scan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-registry/internal/domain"
	"listing-registry/internal/ledger"
	"listing-registry/internal/ledger/stub"
	"listing-registry/internal/record"
	"listing-registry/internal/scan"
	"listing-registry/internal/txn"
	"listing-registry/internal/workflow"
)

type scanFixture struct {
	programID domain.PubKey
	ledger    *stub.Ledger
	wf        *workflow.Workflow
	engine    *scan.Engine
	admin     *txn.Keypair
	config    domain.PubKey
	requestor *txn.Keypair
}

func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()

	programKey, err := txn.NewKeypair()
	require.NoError(t, err)
	admin, err := txn.NewKeypair()
	require.NoError(t, err)
	configKey, err := txn.NewKeypair()
	require.NoError(t, err)
	requestor, err := txn.NewKeypair()
	require.NoError(t, err)

	l := stub.New(programKey.Public())
	l.Fund(admin.Public(), 100_000_000_000)
	l.Fund(requestor.Public(), 100_000_000_000)

	wf := workflow.New(programKey.Public(), l)
	_, err = wf.CreateConfig(context.Background(), admin, configKey, 1_000_000)
	require.NoError(t, err)

	return &scanFixture{
		programID: programKey.Public(),
		ledger:    l,
		wf:        wf,
		engine:    scan.New(programKey.Public(), l),
		admin:     admin,
		config:    configKey.Public(),
		requestor: requestor,
	}
}

func (f *scanFixture) addRequest(t *testing.T, subjectByte byte) domain.PubKey {
	t.Helper()
	var subject domain.PubKey
	subject[0] = subjectByte
	info := &domain.ListingInfo{
		Name:                      "Collection",
		VerifiedCollectionAddress: &subject,
		CollectionUpdateAuthority: f.requestor.Public(),
		AuctionHouse:              f.requestor.Public(),
		TokenType:                 "NFT",
	}
	address, _, err := f.wf.RequestListing(context.Background(), f.requestor, f.config, info)
	require.NoError(t, err)
	return address
}

func TestScanByStatus(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	a := f.addRequest(t, 1)
	b := f.addRequest(t, 2)
	f.addRequest(t, 3)

	_, err := f.wf.Approve(ctx, f.admin, f.config, a)
	require.NoError(t, err)
	_, err = f.wf.Approve(ctx, f.admin, f.config, b)
	require.NoError(t, err)

	approved, err := f.engine.Approved(ctx, f.config)
	require.NoError(t, err)
	assert.Len(t, approved, 2)
	for _, l := range approved {
		assert.True(t, l.IsDaoApproved)
	}

	pending, err := f.engine.Pending(ctx, f.config)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].IsDaoApproved)

	all, err := f.engine.All(ctx, f.config)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestScanByRequestor(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	a := f.addRequest(t, 1)
	_, err := f.wf.Approve(ctx, f.admin, f.config, a)
	require.NoError(t, err)

	mine, err := f.engine.ApprovedBy(ctx, f.config, f.requestor.Public())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a, mine[0].Address)

	other, err := txn.NewKeypair()
	require.NoError(t, err)
	none, err := f.engine.ApprovedBy(ctx, f.config, other.Public())
	require.NoError(t, err)
	assert.Empty(t, none)

	pendingMine, err := f.engine.PendingBy(ctx, f.config, f.requestor.Public())
	require.NoError(t, err)
	assert.Empty(t, pendingMine)
}

func TestScanIgnoresOtherConfigs(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	f.addRequest(t, 1)

	var otherConfig domain.PubKey
	otherConfig[5] = 7
	listings, err := f.engine.All(ctx, otherConfig)
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestScanSkipsCorruptRecords(t *testing.T) {
	f := newScanFixture(t)
	ctx := context.Background()

	f.addRequest(t, 1)

	// Plant a record with a valid prefix but an impossible string length.
	corrupt := make([]byte, record.ListingRequestSize)
	copy(corrupt[:8], record.ListingRequestDiscriminator[:])
	copy(corrupt[record.AdminConfigOffset:], f.config.Bytes())
	corrupt[211] = 0xff
	corrupt[212] = 0xff

	var addr domain.PubKey
	addr[31] = 9
	f.ledger.SetAccount(addr, ledger.Account{
		Lamports: 1,
		Owner:    f.programID,
		Data:     corrupt,
	})

	listings, err := f.engine.All(ctx, f.config)
	require.NoError(t, err)
	assert.Len(t, listings, 1)
}

type timeoutLedger struct {
	ledger.Client
}

func (timeoutLedger) ScanAccounts(ctx context.Context, _ domain.PubKey, _ ledger.ScanQuery) ([]ledger.KeyedAccount, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScanDegradesToEmptyOnTimeout(t *testing.T) {
	programKey, err := txn.NewKeypair()
	require.NoError(t, err)

	engine := scan.New(programKey.Public(), timeoutLedger{}).WithTimeout(20 * time.Millisecond)

	listings, err := engine.All(context.Background(), domain.PubKey{})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

type failingLedger struct {
	ledger.Client
}

var errBoom = errors.New("boom")

func (failingLedger) ScanAccounts(context.Context, domain.PubKey, ledger.ScanQuery) ([]ledger.KeyedAccount, error) {
	return nil, errBoom
}

func TestScanPropagatesHardErrors(t *testing.T) {
	programKey, err := txn.NewKeypair()
	require.NoError(t, err)

	engine := scan.New(programKey.Public(), failingLedger{})

	_, err = engine.All(context.Background(), domain.PubKey{})
	assert.ErrorIs(t, err, errBoom)
}
