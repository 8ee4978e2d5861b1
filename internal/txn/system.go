package txn

import (
	"encoding/binary"

	"listing-registry/internal/domain"
)

// SystemProgramID is the native program handling lamport transfers and
// account creation.
var SystemProgramID = domain.MustPubKey("11111111111111111111111111111111")

const systemTransferIndex = 2

// Transfer builds a system program lamport transfer from one account to
// another. The source must sign.
func Transfer(from, to domain.PubKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			Meta(from, true, true),
			Meta(to, false, true),
		},
		Data: data,
	}
}
