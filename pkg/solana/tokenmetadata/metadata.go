package tokenmetadata

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana/binary"
)

// ErrInvalidMetadata is returned when packed metadata cannot be decoded.
var ErrInvalidMetadata = errors.New("invalid token metadata")

// KeyValue is an arbitrary additional metadata entry.
type KeyValue struct {
	Key   string
	Value string
}

// TokenMetadata is the variable length metadata stored alongside a Token-2022
// mint.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token-metadata/interface/src/state.rs
type TokenMetadata struct {
	// UpdateAuthority is optional. A nil authority is packed as all zeroes,
	// which marks the metadata as immutable.
	UpdateAuthority ed25519.PublicKey
	Mint            ed25519.PublicKey

	Name   string
	Symbol string
	URI    string

	AdditionalMetadata []KeyValue
}

// PackedLen returns the length of the borsh encoded metadata, excluding the
// TLV type and length header.
func (m *TokenMetadata) PackedLen() int {
	size := 2*ed25519.PublicKeySize + stringLen(m.Name) + stringLen(m.Symbol) + stringLen(m.URI) + 4
	for _, kv := range m.AdditionalMetadata {
		size += stringLen(kv.Key) + stringLen(kv.Value)
	}
	return size
}

// Pack encodes the metadata the way it is stored on chain.
func (m *TokenMetadata) Pack() []byte {
	e := binary.NewEncoder(m.PackedLen()).
		Key(m.UpdateAuthority).
		Key(m.Mint).
		String(m.Name).
		String(m.Symbol).
		String(m.URI).
		Uint32(uint32(len(m.AdditionalMetadata)))

	for _, kv := range m.AdditionalMetadata {
		e.String(kv.Key).String(kv.Value)
	}
	return e.Bytes()
}

// Unpack decodes metadata previously encoded with Pack.
func Unpack(data []byte) (*TokenMetadata, error) {
	d := binary.NewDecoder(data)

	m := &TokenMetadata{
		UpdateAuthority: d.Key(),
		Mint:            d.Key(),
		Name:            d.String(),
		Symbol:          d.String(),
		URI:             d.String(),
	}

	count := d.Uint32()
	if d.Err() != nil {
		return nil, errors.Wrap(ErrInvalidMetadata, d.Err().Error())
	}
	for i := uint32(0); i < count; i++ {
		kv := KeyValue{Key: d.String(), Value: d.String()}
		if d.Err() != nil {
			return nil, errors.Wrap(ErrInvalidMetadata, d.Err().Error())
		}
		m.AdditionalMetadata = append(m.AdditionalMetadata, kv)
	}

	if d.Remaining() != 0 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%d trailing bytes", d.Remaining())
	}
	if isZeroKey(m.UpdateAuthority) {
		m.UpdateAuthority = nil
	}
	return m, nil
}

func stringLen(s string) int {
	return 4 + len(s)
}

func isZeroKey(k ed25519.PublicKey) bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}
