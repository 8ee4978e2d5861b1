package txn

import (
	"crypto/ed25519"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-registry/internal/domain"
)

func TestCompactU16(t *testing.T) {
	tests := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, appendCompactU16(nil, tc.n), "n=%d", tc.n)
	}
}

func TestCompileMessageOrdering(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	cosigner, err := NewKeypair()
	require.NoError(t, err)

	writable := domain.MustPubKey("SysvarRent111111111111111111111111111111111")
	readonly := domain.MustPubKey("SysvarC1ock11111111111111111111111111111111")
	program := domain.MustPubKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	in := Instruction{
		ProgramID: program,
		Accounts: []AccountMeta{
			Meta(readonly, false, false),
			Meta(writable, false, true),
			Meta(cosigner.Public(), true, false),
			Meta(payer.Public(), true, true),
		},
		Data: []byte{1, 2, 3},
	}

	msg, err := CompileMessage(payer.Public(), []Instruction{in}, domain.Hash{})
	require.NoError(t, err)

	// Fee payer first, then readonly signer, writable non-signers,
	// readonly non-signers with the program last among first references.
	require.Len(t, msg.AccountKeys, 5)
	assert.Equal(t, payer.Public(), msg.AccountKeys[0])
	assert.Equal(t, cosigner.Public(), msg.AccountKeys[1])
	assert.Equal(t, writable, msg.AccountKeys[2])
	assert.Equal(t, readonly, msg.AccountKeys[3])
	assert.Equal(t, program, msg.AccountKeys[4])

	assert.Equal(t, uint8(2), msg.NumRequiredSignatures)
	assert.Equal(t, uint8(1), msg.NumReadonlySignedAccounts)
	assert.Equal(t, uint8(2), msg.NumReadonlyUnsignedAccounts)

	require.Len(t, msg.Instructions, 1)
	assert.Equal(t, uint8(4), msg.Instructions[0].ProgramIDIndex)
	assert.Equal(t, []uint8{3, 2, 1, 0}, msg.Instructions[0].AccountIndexes)
}

func TestCompileMessageMergesPrivileges(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	shared := domain.MustPubKey("SysvarRent111111111111111111111111111111111")
	program := domain.MustPubKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	ins := []Instruction{
		{ProgramID: program, Accounts: []AccountMeta{Meta(shared, false, false)}, Data: []byte{1}},
		{ProgramID: program, Accounts: []AccountMeta{Meta(shared, false, true)}, Data: []byte{2}},
	}

	msg, err := CompileMessage(payer.Public(), ins, domain.Hash{})
	require.NoError(t, err)

	// One table entry, promoted to writable.
	require.Len(t, msg.AccountKeys, 3)
	assert.Equal(t, shared, msg.AccountKeys[1])
	assert.Equal(t, uint8(1), msg.NumReadonlyUnsignedAccounts)
}

func TestTransactionSigning(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	dest := domain.MustPubKey("SysvarRent111111111111111111111111111111111")

	tx, err := NewTransaction(payer.Public(), []Instruction{Transfer(payer.Public(), dest, 500)}, domain.Hash{1}, payer)
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)

	var pub ed25519.PublicKey = payer.Public().Bytes()
	assert.True(t, ed25519.Verify(pub, tx.Message.Serialize(), tx.Signatures[0]))
	assert.NotEmpty(t, tx.Signature())
	assert.NotEmpty(t, tx.Base64())
}

func TestTransactionMissingSigner(t *testing.T) {
	payer, err := NewKeypair()
	require.NoError(t, err)
	dest := domain.MustPubKey("SysvarRent111111111111111111111111111111111")

	_, err = NewTransaction(payer.Public(), []Instruction{Transfer(payer.Public(), dest, 500)}, domain.Hash{1})
	assert.Error(t, err)
}

func TestInstructionTag(t *testing.T) {
	sum := sha256.Sum256([]byte("global:approve_listing"))
	tag := InstructionTag("approve_listing")
	assert.Equal(t, sum[:8], tag[:])
}

func TestArgWriter(t *testing.T) {
	key := domain.MustPubKey("SysvarRent111111111111111111111111111111111")
	data := NewArgWriter("update_fee").U64(7).Bool(true).String("ab").OptionalKey(nil).OptionalKey(&key).Bytes()

	want := InstructionTag("update_fee")
	assert.Equal(t, want[:], data[:8])
	assert.Equal(t, []byte{7, 0, 0, 0, 0, 0, 0, 0}, data[8:16])
	assert.Equal(t, byte(1), data[16])
	assert.Equal(t, []byte{2, 0, 0, 0, 'a', 'b'}, data[17:23])
	assert.Equal(t, byte(0), data[23])
	assert.Equal(t, byte(1), data[24])
	assert.Equal(t, key.Bytes(), data[25:57])
}
