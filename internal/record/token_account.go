package record

import (
	"encoding/binary"
	"fmt"

	"listing-registry/internal/domain"
)

// TokenAccountSize is the fixed data size of an SPL token account.
const TokenAccountSize = 165

// TokenAccount is the subset of an SPL token account the registry reads:
// which mint it holds, who owns it, and how much is in it.
type TokenAccount struct {
	Mint   domain.PubKey
	Owner  domain.PubKey
	Amount uint64
	Frozen bool
}

// DecodeTokenAccount parses an SPL token account. Layout: mint at 0,
// owner at 32, amount at 64, state at 108 (2 means frozen).
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("%w: token account is %d bytes, want %d", ErrMalformed, len(data), TokenAccountSize)
	}
	var t TokenAccount
	copy(t.Mint[:], data[0:32])
	copy(t.Owner[:], data[32:64])
	t.Amount = binary.LittleEndian.Uint64(data[64:72])
	t.Frozen = data[108] == 2
	return &t, nil
}
