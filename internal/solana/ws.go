package solana

import "context"

// WSClient defines the ledger WebSocket subscription interface.
type WSClient interface {
	// SubscribeProgram subscribes to account changes under a program.
	SubscribeProgram(ctx context.Context, filter ProgramFilter) (<-chan AccountUpdate, error)

	// Close closes the WebSocket connection.
	Close() error
}

// ProgramFilter narrows a program subscription server-side, mirroring
// the getProgramAccounts filters. A zero DataSize means no size filter.
type ProgramFilter struct {
	ProgramID string
	DataSize  int
	Memcmp    []Memcmp
}

// AccountUpdate represents one program account change notification.
type AccountUpdate struct {
	Pubkey  string
	Slot    int64
	Account AccountInfo
}
