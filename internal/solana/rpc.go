package solana

import "context"

// RPCClient defines the ledger RPC HTTP interface the registry uses.
type RPCClient interface {
	// GetAccountInfo retrieves an account by address. Returns nil when
	// the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance retrieves an account's lamport balance. Absent
	// accounts report zero.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt reserve
	// for an account of the given data size.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error)

	// GetLatestBlockhash retrieves a recent blockhash for transaction
	// assembly.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// SendTransaction submits a base64-encoded signed transaction and
	// returns its signature.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)

	// GetProgramAccounts scans all accounts owned by a program,
	// server-side filtered by data size and byte prefixes.
	GetProgramAccounts(ctx context.Context, programID string, opts *ProgramAccountsOpts) ([]KeyedAccount, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)
}
