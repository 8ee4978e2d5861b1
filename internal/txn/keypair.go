// Package txn builds, signs, and serializes legacy ledger transactions.
package txn

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"

	"listing-registry/internal/domain"
)

// Signer produces ed25519 signatures for a known public key. The
// workflow accepts this interface so callers can plug in hardware or
// remote signers.
type Signer interface {
	Public() domain.PubKey
	Sign(message []byte) ([]byte, error)
}

// Keypair is an in-memory ed25519 signer.
type Keypair struct {
	pub  domain.PubKey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	var k domain.PubKey
	copy(k[:], pub)
	return &Keypair{pub: k, priv: priv}, nil
}

// KeypairFromBase58 loads a keypair from a base58-encoded 64-byte
// secret (seed plus public key, the common wallet export format).
func KeypairFromBase58(s string) (*Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode keypair: %w", err)
	}
	return KeypairFromBytes(raw)
}

// KeypairFromBytes loads a keypair from a raw 64-byte secret.
func KeypairFromBytes(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(append([]byte(nil), raw...))
	var k domain.PubKey
	copy(k[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{pub: k, priv: priv}, nil
}

// Public returns the keypair's public key.
func (k *Keypair) Public() domain.PubKey {
	return k.pub
}

// Sign signs a serialized message.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}
