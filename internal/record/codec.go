package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"listing-registry/internal/domain"
)

// ErrMalformed reports account data that cannot be decoded as the
// expected record kind: wrong size, wrong discriminator, or a string
// length prefix exceeding its slot capacity.
var ErrMalformed = errors.New("malformed record")

// EncodeConfig serializes a config record, discriminator included.
func EncodeConfig(c *domain.Config) []byte {
	buf := make([]byte, ConfigSize)
	copy(buf[:8], ConfigDiscriminator[:])
	copy(buf[8:40], c.Admin[:])
	binary.LittleEndian.PutUint64(buf[40:48], c.Fee)
	return buf
}

// DecodeConfig parses a config record from raw account data.
func DecodeConfig(data []byte) (*domain.Config, error) {
	if len(data) < ConfigSize {
		return nil, fmt.Errorf("%w: config record is %d bytes, want %d", ErrMalformed, len(data), ConfigSize)
	}
	if !bytes.Equal(data[:8], ConfigDiscriminator[:]) {
		return nil, fmt.Errorf("%w: config discriminator mismatch", ErrMalformed)
	}
	var c domain.Config
	copy(c.Admin[:], data[8:40])
	c.Fee = binary.LittleEndian.Uint64(data[40:48])
	return &c, nil
}

// EncodeListingRequest serializes a listing request record. String
// fields longer than their slot capacity are rejected; shorter strings
// are zero-padded so the record stays exactly ListingRequestSize bytes.
func EncodeListingRequest(r *domain.ListingRequest) ([]byte, error) {
	buf := make([]byte, ListingRequestSize)
	w := recordWriter{buf: buf}

	w.bytes(ListingRequestDiscriminator[:])
	w.optionalKey(r.VerifiedCollectionAddress)
	w.key(r.CollectionUpdateAuthority)
	w.flag(r.IsDaoApproved)
	w.flag(r.Enabled)
	w.skip(1)
	w.key(r.AuctionHouse)
	w.key(r.AdminConfig)
	w.key(r.ListingRequestor)
	w.optionalKey(r.Governance)
	w.u64(r.Fee)
	w.str(r.Name, NameCap, "name")
	w.str(r.MetaDataURL, MetaDataURLCap, "meta_data_url")
	w.str(r.VanityURL, VanityURLCap, "vanity_url")
	w.str(r.TokenType, TokenTypeCap, "token_type")
	w.u8(r.RequestType)

	if w.err != nil {
		return nil, w.err
	}
	return buf, nil
}

// DecodeListingRequest parses a listing request record from raw account
// data. Trailing bytes beyond the fixed size are ignored.
func DecodeListingRequest(data []byte) (*domain.ListingRequest, error) {
	if len(data) < ListingRequestSize {
		return nil, fmt.Errorf("%w: listing record is %d bytes, want %d", ErrMalformed, len(data), ListingRequestSize)
	}
	if !bytes.Equal(data[:8], ListingRequestDiscriminator[:]) {
		return nil, fmt.Errorf("%w: listing discriminator mismatch", ErrMalformed)
	}

	var r domain.ListingRequest
	rd := recordReader{buf: data, pos: 8}

	r.VerifiedCollectionAddress = rd.optionalKey()
	r.CollectionUpdateAuthority = rd.key()
	r.IsDaoApproved = rd.flag()
	r.Enabled = rd.flag()
	rd.skip(1)
	r.AuctionHouse = rd.key()
	r.AdminConfig = rd.key()
	r.ListingRequestor = rd.key()
	r.Governance = rd.optionalKey()
	r.Fee = rd.u64()
	r.Name = rd.str(NameCap, "name")
	r.MetaDataURL = rd.str(MetaDataURLCap, "meta_data_url")
	r.VanityURL = rd.str(VanityURLCap, "vanity_url")
	r.TokenType = rd.str(TokenTypeCap, "token_type")
	r.RequestType = rd.u8()

	if rd.err != nil {
		return nil, rd.err
	}
	return &r, nil
}

type recordWriter struct {
	buf []byte
	pos int
	err error
}

func (w *recordWriter) bytes(b []byte) {
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
}

func (w *recordWriter) key(k domain.PubKey) {
	w.bytes(k[:])
}

// optionalKey writes the zero-address sentinel when k is nil.
func (w *recordWriter) optionalKey(k *domain.PubKey) {
	if k == nil {
		w.key(domain.ZeroKey)
		return
	}
	w.key(*k)
}

func (w *recordWriter) flag(v bool) {
	if v {
		w.buf[w.pos] = 1
	}
	w.pos++
}

func (w *recordWriter) skip(n int) {
	w.pos += n
}

func (w *recordWriter) u8(v uint8) {
	w.buf[w.pos] = v
	w.pos++
}

func (w *recordWriter) u64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
}

func (w *recordWriter) str(s string, cap int, field string) {
	if w.err == nil && len(s) > cap {
		w.err = fmt.Errorf("%w: %s is %d bytes, capacity %d", ErrMalformed, field, len(s), cap)
	}
	binary.LittleEndian.PutUint32(w.buf[w.pos:], uint32(len(s)))
	copy(w.buf[w.pos+4:w.pos+4+cap], s)
	w.pos += 4 + cap
}

type recordReader struct {
	buf []byte
	pos int
	err error
}

func (rd *recordReader) key() domain.PubKey {
	var k domain.PubKey
	copy(k[:], rd.buf[rd.pos:rd.pos+32])
	rd.pos += 32
	return k
}

// optionalKey maps the zero-address sentinel back to nil.
func (rd *recordReader) optionalKey() *domain.PubKey {
	k := rd.key()
	if k.IsZero() {
		return nil
	}
	return &k
}

func (rd *recordReader) flag() bool {
	v := rd.buf[rd.pos] != 0
	rd.pos++
	return v
}

func (rd *recordReader) skip(n int) {
	rd.pos += n
}

func (rd *recordReader) u8() uint8 {
	v := rd.buf[rd.pos]
	rd.pos++
	return v
}

func (rd *recordReader) u64() uint64 {
	v := binary.LittleEndian.Uint64(rd.buf[rd.pos:])
	rd.pos += 8
	return v
}

func (rd *recordReader) str(cap int, field string) string {
	n := int(binary.LittleEndian.Uint32(rd.buf[rd.pos:]))
	if n > cap {
		if rd.err == nil {
			rd.err = fmt.Errorf("%w: %s length prefix %d exceeds capacity %d", ErrMalformed, field, n, cap)
		}
		n = 0
	}
	s := string(rd.buf[rd.pos+4 : rd.pos+4+n])
	rd.pos += 4 + cap
	return s
}
