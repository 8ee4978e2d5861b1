package txn

import "listing-registry/internal/domain"

// AccountMeta declares how an instruction touches one account.
type AccountMeta struct {
	Key      domain.PubKey
	Signer   bool
	Writable bool
}

// Instruction is one program invocation: the program to call, the
// accounts it may read or write, and its opaque data payload.
type Instruction struct {
	ProgramID domain.PubKey
	Accounts  []AccountMeta
	Data      []byte
}

// Meta is a convenience constructor for AccountMeta.
func Meta(key domain.PubKey, signer, writable bool) AccountMeta {
	return AccountMeta{Key: key, Signer: signer, Writable: writable}
}
