package solana

// AccountInfo represents ledger account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// KeyedAccount pairs an account with its address, as returned by
// program scans and subscriptions.
type KeyedAccount struct {
	Pubkey  string
	Account AccountInfo
}

// Memcmp matches accounts whose data equals Bytes at Offset.
type Memcmp struct {
	Offset int
	Bytes  []byte
}

// ProgramAccountsOpts narrows a getProgramAccounts scan. A zero
// DataSize means no size filter.
type ProgramAccountsOpts struct {
	DataSize int
	Memcmp   []Memcmp
}
