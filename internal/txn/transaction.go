package txn

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"listing-registry/internal/domain"
)

// Transaction is a compiled message plus signatures, one per required
// signer, in account table order.
type Transaction struct {
	Signatures [][]byte
	Message    *Message
}

// NewTransaction compiles the instructions and collects a signature
// from every required signer. Each signer in the message's signer
// region must be present in signers exactly by public key.
func NewTransaction(feePayer domain.PubKey, instructions []Instruction, blockhash domain.Hash, signers ...Signer) (*Transaction, error) {
	msg, err := CompileMessage(feePayer, instructions, blockhash)
	if err != nil {
		return nil, err
	}

	byKey := make(map[domain.PubKey]Signer, len(signers))
	for _, s := range signers {
		byKey[s.Public()] = s
	}

	serialized := msg.Serialize()
	tx := &Transaction{Message: msg}
	for i := 0; i < int(msg.NumRequiredSignatures); i++ {
		key := msg.AccountKeys[i]
		s, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("missing signer for %s", key)
		}
		sig, err := s.Sign(serialized)
		if err != nil {
			return nil, fmt.Errorf("sign as %s: %w", key, err)
		}
		tx.Signatures = append(tx.Signatures, sig)
	}

	return tx, nil
}

// Serialize encodes the signed transaction in the legacy wire format.
func (tx *Transaction) Serialize() []byte {
	buf := make([]byte, 0, 512)
	buf = appendCompactU16(buf, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		buf = append(buf, sig...)
	}
	return append(buf, tx.Message.Serialize()...)
}

// Base64 returns the serialized transaction in the encoding the RPC
// sendTransaction method expects.
func (tx *Transaction) Base64() string {
	return base64.StdEncoding.EncodeToString(tx.Serialize())
}

// Signature returns the base58 primary signature, which doubles as the
// transaction's identifier.
func (tx *Transaction) Signature() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}
