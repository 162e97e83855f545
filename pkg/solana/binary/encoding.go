// Package binary encodes and decodes the little-endian instruction layouts used
// by on-chain programs.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrShortBuffer = errors.New("buffer too short")

// Encoder appends fields to an instruction data buffer.
type Encoder struct {
	buf []byte
}

func NewEncoder(capacity int) *Encoder {
	return &Encoder{buf: make([]byte, 0, capacity)}
}

func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

func (e *Encoder) Uint16(v uint16) *Encoder {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
	return e
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) Uint64(v uint64) *Encoder {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
	return e
}

// Key appends a 32 byte public key. A nil key is encoded as all zeros, which
// is how programs represent an unset authority in fixed-size fields.
func (e *Encoder) Key(pub ed25519.PublicKey) *Encoder {
	var key [ed25519.PublicKeySize]byte
	copy(key[:], pub)
	e.buf = append(e.buf, key[:]...)
	return e
}

// OptionalKey appends a one byte option tag followed by the key. The key bytes
// are always written.
func (e *Encoder) OptionalKey(pub ed25519.PublicKey) *Encoder {
	if len(pub) > 0 {
		e.Uint8(1)
	} else {
		e.Uint8(0)
	}
	return e.Key(pub)
}

// String appends a u32 length prefixed UTF-8 string.
func (e *Encoder) String(s string) *Encoder {
	e.Uint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads fields written by an Encoder. The first read past the end of
// the buffer latches ErrShortBuffer and all later reads return zero values.
type Decoder struct {
	buf    []byte
	offset int
	err    error
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.offset+n > len(d.buf) {
		d.err = errors.Wrapf(ErrShortBuffer, "need %d bytes at offset %d, have %d", n, d.offset, len(d.buf))
		return nil
	}
	b := d.buf[d.offset : d.offset+n]
	d.offset += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	if b := d.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *Decoder) Uint16() uint16 {
	if b := d.next(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *Decoder) Uint32() uint32 {
	if b := d.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *Decoder) Uint64() uint64 {
	if b := d.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *Decoder) Key() ed25519.PublicKey {
	if b := d.next(ed25519.PublicKeySize); b != nil {
		return append(ed25519.PublicKey{}, b...)
	}
	return nil
}

// OptionalKey returns nil when the option tag is unset.
func (d *Decoder) OptionalKey() ed25519.PublicKey {
	set := d.Uint8()
	key := d.Key()
	if set == 0 {
		return nil
	}
	return key
}

func (d *Decoder) String() string {
	n := d.Uint32()
	if b := d.next(int(n)); b != nil {
		return string(b)
	}
	return ""
}

// Remaining is the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.offset
}

func (d *Decoder) Err() error {
	return d.err
}
