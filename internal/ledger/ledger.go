// Package ledger is the domain-typed seam between the workflow and the
// raw RPC transport. The workflow talks to this interface; production
// wiring adapts it onto the HTTP client, tests onto an in-memory stub.
package ledger

import (
	"context"

	"listing-registry/internal/domain"
	"listing-registry/internal/txn"
)

// Account is ledger account state.
type Account struct {
	Lamports uint64
	Owner    domain.PubKey
	Data     []byte
}

// ByteFilter matches accounts whose data equals Bytes at Offset.
type ByteFilter struct {
	Offset int
	Bytes  []byte
}

// ScanQuery narrows a program account scan. A zero DataSize means no
// size filter.
type ScanQuery struct {
	DataSize int
	Filters  []ByteFilter
}

// KeyedAccount pairs scan results with their addresses.
type KeyedAccount struct {
	Address domain.PubKey
	Account Account
}

// Client is the ledger surface the registry workflow requires.
type Client interface {
	// ReadAccount fetches account state. Returns nil when the account
	// does not exist.
	ReadAccount(ctx context.Context, address domain.PubKey) (*Account, error)

	// Balance reports an account's lamports. Absent accounts report zero.
	Balance(ctx context.Context, address domain.PubKey) (uint64, error)

	// MinimumBalance returns the rent-exempt reserve for the data size.
	MinimumBalance(ctx context.Context, dataLen int) (uint64, error)

	// ScanAccounts lists accounts owned by the program matching the query.
	ScanAccounts(ctx context.Context, programID domain.PubKey, query ScanQuery) ([]KeyedAccount, error)

	// LatestBlockhash fetches a recent blockhash for transaction assembly.
	LatestBlockhash(ctx context.Context) (domain.Hash, error)

	// Submit signs and sends a transaction, returning its signature.
	Submit(ctx context.Context, feePayer domain.PubKey, instructions []txn.Instruction, signers ...txn.Signer) (string, error)
}
