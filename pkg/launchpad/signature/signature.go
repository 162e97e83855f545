// Package signature verifies detached ed25519 signatures over arbitrary
// messages, such as those produced by a wallet's message signing.
package signature

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
)

var ErrInvalidSignature = errors.New("signature does not match message")

// Verify checks that sig is publicKey's signature over message. Malformed
// input is rejected with a *common.ValidationError before verifying.
func Verify(publicKey, message, sig []byte) error {
	if len(message) == 0 {
		return common.NewValidationError("message", "is required")
	}
	if len(publicKey) != ed25519.PublicKeySize {
		return common.NewValidationError("public key", "must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}
	if len(sig) != ed25519.SignatureSize {
		return common.NewValidationError("signature", "must be %d bytes, got %d", ed25519.SignatureSize, len(sig))
	}

	if !ed25519.Verify(publicKey, message, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyBase58 is Verify for a base58 encoded public key and signature.
func VerifyBase58(publicKey string, message []byte, sig string) error {
	key, err := common.NewKeyFromString(publicKey)
	if err != nil || !key.IsPublic() {
		return common.NewValidationError("public key", "%q is not a valid address", publicKey)
	}

	decoded, err := base58.Decode(sig)
	if err != nil {
		return common.NewValidationError("signature", "is not base58 encoded")
	}

	return Verify(key.ToBytes(), message, decoded)
}
