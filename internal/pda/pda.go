// Package pda derives program addresses: deterministic, signer-less
// account addresses owned by an on-chain program.
package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"listing-registry/internal/domain"
)

// ErrDerivationExhausted reports that no bump seed in 255..1 produced an
// off-curve point for the given seeds. Practically unreachable, but the
// search space is finite so the failure mode exists.
var ErrDerivationExhausted = errors.New("program address derivation exhausted")

// MaxSeedLen is the byte limit the runtime enforces per seed.
const MaxSeedLen = 32

// FindProgramAddress searches bump seeds from 255 downward for the first
// hash that is not a valid ed25519 curve point, guaranteeing the address
// has no corresponding private key. Returns the address and the bump
// that produced it.
func FindProgramAddress(seeds [][]byte, programID domain.PubKey) (domain.PubKey, uint8, error) {
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return domain.PubKey{}, 0, fmt.Errorf("seed exceeds %d bytes: %d", MaxSeedLen, len(seed))
		}
	}

	for bump := 255; bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID[:]...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return domain.PubKey(hash), uint8(bump), nil
		}
	}

	return domain.PubKey{}, 0, ErrDerivationExhausted
}

func isOnCurve(point []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ListingRequestAddress derives the unique record address for a
// (registry config, subject) pair. One live request per pair follows
// from this derivation being deterministic.
func ListingRequestAddress(programID, adminConfig, subject domain.PubKey) (domain.PubKey, uint8, error) {
	return FindProgramAddress([][]byte{adminConfig[:], subject[:]}, programID)
}

// Well-known program IDs used in associated token address derivation.
var (
	TokenProgramID           = domain.MustPubKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = domain.MustPubKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// AssociatedTokenAddress derives the canonical token account for a
// wallet and mint.
func AssociatedTokenAddress(wallet, mint domain.PubKey) (domain.PubKey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{wallet[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	return addr, err
}
