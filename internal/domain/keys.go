package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubKey is a 32-byte ed25519 public key or derived address.
type PubKey [32]byte

// ZeroKey is the all-zero address used as the on-wire sentinel for
// absent optional addresses. It must never be treated as a real key.
var ZeroKey PubKey

// ParsePubKey decodes a base58-encoded 32-byte key.
func ParsePubKey(s string) (PubKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PubKey{}, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != 32 {
		return PubKey{}, fmt.Errorf("pubkey %q: expected 32 bytes, got %d", s, len(raw))
	}
	var k PubKey
	copy(k[:], raw)
	return k, nil
}

// MustPubKey parses a base58 key and panics on failure.
// Intended for well-known program IDs only.
func MustPubKey(s string) PubKey {
	k, err := ParsePubKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// PubKeyFromBytes copies raw into a PubKey. Returns an error unless raw is 32 bytes.
func PubKeyFromBytes(raw []byte) (PubKey, error) {
	if len(raw) != 32 {
		return PubKey{}, fmt.Errorf("pubkey: expected 32 bytes, got %d", len(raw))
	}
	var k PubKey
	copy(k[:], raw)
	return k, nil
}

// String returns the base58 encoding.
func (k PubKey) String() string {
	return base58.Encode(k[:])
}

// Bytes returns the raw 32 bytes.
func (k PubKey) Bytes() []byte {
	return k[:]
}

// IsZero reports whether k is the absent-address sentinel.
func (k PubKey) IsZero() bool {
	return k == ZeroKey
}

// Hash is a 32-byte blockhash.
type Hash [32]byte

// ParseHash decodes a base58-encoded 32-byte hash.
func ParseHash(s string) (Hash, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decode hash %q: %w", s, err)
	}
	if len(raw) != 32 {
		return Hash{}, fmt.Errorf("hash %q: expected 32 bytes, got %d", s, len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

// String returns the base58 encoding.
func (h Hash) String() string {
	return base58.Encode(h[:])
}
