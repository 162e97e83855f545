package main

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// loadKeypair reads a keypair file in the Solana CLI format: a JSON array of
// the 64 private key bytes.
func loadKeypair(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keypair file")
	}

	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(err, "keypair file is not a json byte array")
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("keypair must contain %d bytes, found %d", ed25519.PrivateKeySize, len(values))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("keypair byte %d out of range: %d", i, v)
		}
		key[i] = byte(v)
	}

	// The trailing half is the public key; a mismatch means the file was
	// edited or truncated.
	seeded := ed25519.NewKeyFromSeed(key.Seed())
	if !seeded.Equal(key) {
		return nil, errors.New("keypair public key does not match its seed")
	}

	return key, nil
}
