// Package shortvec implements the compact length prefix used by the Solana
// wire format: little-endian base-128 with a continuation bit, at most three
// bytes for values up to math.MaxUint16.
package shortvec

import (
	"fmt"
	"io"
	"math"
)

const maxEncodedBytes = 3

// EncodeLen writes length to w.
//
// If length > math.MaxUint16, an error is returned.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, fmt.Errorf("len must be within [0, %d]", math.MaxUint16)
	}

	var encoded [maxEncodedBytes]byte
	n := 0
	for {
		b := byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			encoded[n] = b
			n++
			break
		}

		encoded[n] = b | 0x80
		n++
	}

	return w.Write(encoded[:n])
}

// DecodeLen reads a length previously written by EncodeLen.
func DecodeLen(r io.Reader) (int, error) {
	var val int
	var b [1]byte

	for i := 0; ; i++ {
		if i >= maxEncodedBytes {
			return 0, fmt.Errorf("invalid size: more than %d bytes", maxEncodedBytes)
		}

		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (i * 7)
		if b[0]&0x80 == 0 {
			break
		}
	}

	return val, nil
}
