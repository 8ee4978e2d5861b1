package txn

import (
	"crypto/sha256"
	"encoding/binary"

	"listing-registry/internal/domain"
)

// InstructionTag is the 8-byte method selector prefixed to instruction
// data: the first 8 bytes of SHA-256("global:<snake_case_method>").
func InstructionTag(method string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + method))
	var tag [8]byte
	copy(tag[:], sum[:8])
	return tag
}

// ArgWriter serializes instruction arguments after the method tag.
// Integers are little-endian, strings carry a u32 length prefix, and
// optional values carry a one-byte presence tag.
type ArgWriter struct {
	buf []byte
}

// NewArgWriter starts an argument buffer with the method tag.
func NewArgWriter(method string) *ArgWriter {
	tag := InstructionTag(method)
	return &ArgWriter{buf: append(make([]byte, 0, 64), tag[:]...)}
}

// Bytes returns the completed instruction data.
func (w *ArgWriter) Bytes() []byte {
	return w.buf
}

func (w *ArgWriter) U8(v uint8) *ArgWriter {
	w.buf = append(w.buf, v)
	return w
}

func (w *ArgWriter) Bool(v bool) *ArgWriter {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *ArgWriter) U64(v uint64) *ArgWriter {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *ArgWriter) String(s string) *ArgWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

func (w *ArgWriter) Key(k domain.PubKey) *ArgWriter {
	w.buf = append(w.buf, k[:]...)
	return w
}

// OptionalKey writes a presence tag followed by the key when non-nil.
func (w *ArgWriter) OptionalKey(k *domain.PubKey) *ArgWriter {
	if k == nil {
		return w.U8(0)
	}
	return w.U8(1).Key(*k)
}
