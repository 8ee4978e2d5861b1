package txn

import (
	"fmt"

	"listing-registry/internal/domain"
)

// Message is a compiled legacy transaction message: a deduplicated,
// privilege-ordered account table plus instructions referencing it by
// index.
type Message struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
	AccountKeys                 []domain.PubKey
	RecentBlockhash             domain.Hash
	Instructions                []compiledInstruction
}

type compiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// CompileMessage merges the account requirements of all instructions
// into the canonical table ordering: fee payer first, then writable
// signers, readonly signers, writable non-signers, readonly
// non-signers. An account referenced with mixed privileges gets the
// union of them.
func CompileMessage(feePayer domain.PubKey, instructions []Instruction, blockhash domain.Hash) (*Message, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("compile message: no instructions")
	}

	type privilege struct {
		signer   bool
		writable bool
	}
	order := []domain.PubKey{feePayer}
	privs := map[domain.PubKey]*privilege{
		feePayer: {signer: true, writable: true},
	}
	note := func(key domain.PubKey, signer, writable bool) {
		p, ok := privs[key]
		if !ok {
			p = &privilege{}
			privs[key] = p
			order = append(order, key)
		}
		p.signer = p.signer || signer
		p.writable = p.writable || writable
	}

	for _, in := range instructions {
		for _, m := range in.Accounts {
			note(m.Key, m.Signer, m.Writable)
		}
		note(in.ProgramID, false, false)
	}

	// Stable partition by privilege class keeps first-reference order
	// within each class.
	var keys []domain.PubKey
	pick := func(signer, writable bool) {
		for _, k := range order {
			p := privs[k]
			if p.signer == signer && p.writable == writable {
				keys = append(keys, k)
			}
		}
	}
	pick(true, true)
	pick(true, false)
	pick(false, true)
	pick(false, false)

	if len(keys) > 255 {
		return nil, fmt.Errorf("compile message: %d accounts exceed the table limit", len(keys))
	}

	index := make(map[domain.PubKey]uint8, len(keys))
	for i, k := range keys {
		index[k] = uint8(i)
	}

	msg := &Message{
		AccountKeys:     keys,
		RecentBlockhash: blockhash,
	}
	for _, k := range keys {
		p := privs[k]
		if p.signer {
			msg.NumRequiredSignatures++
			if !p.writable {
				msg.NumReadonlySignedAccounts++
			}
		} else if !p.writable {
			msg.NumReadonlyUnsignedAccounts++
		}
	}

	for _, in := range instructions {
		ci := compiledInstruction{
			ProgramIDIndex: index[in.ProgramID],
			Data:           in.Data,
		}
		for _, m := range in.Accounts {
			ci.AccountIndexes = append(ci.AccountIndexes, index[m.Key])
		}
		msg.Instructions = append(msg.Instructions, ci)
	}

	return msg, nil
}

// Serialize encodes the message in the legacy wire format.
func (m *Message) Serialize() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, m.NumRequiredSignatures, m.NumReadonlySignedAccounts, m.NumReadonlyUnsignedAccounts)
	buf = appendCompactU16(buf, len(m.AccountKeys))
	for _, k := range m.AccountKeys {
		buf = append(buf, k[:]...)
	}
	buf = append(buf, m.RecentBlockhash[:]...)
	buf = appendCompactU16(buf, len(m.Instructions))
	for _, in := range m.Instructions {
		buf = append(buf, in.ProgramIDIndex)
		buf = appendCompactU16(buf, len(in.AccountIndexes))
		buf = append(buf, in.AccountIndexes...)
		buf = appendCompactU16(buf, len(in.Data))
		buf = append(buf, in.Data...)
	}
	return buf
}

// appendCompactU16 writes the shortvec length prefix: 7 bits per byte,
// high bit set on continuation.
func appendCompactU16(buf []byte, n int) []byte {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
