package signature

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/testutil"
)

func TestVerify_RoundTrip(t *testing.T) {
	account := testutil.NewRandomAccount(t)
	message := []byte("hello launchpad")

	sig, err := account.Sign(message)
	require.NoError(t, err)
	require.NoError(t, Verify(account.PublicKey().ToBytes(), message, sig))
	require.NoError(t, VerifyBase58(account.PublicKey().ToBase58(), message, base58.Encode(sig)))

	for i := range sig {
		mutated := append([]byte{}, sig...)
		mutated[i] ^= 0x01
		assert.ErrorIs(t, Verify(account.PublicKey().ToBytes(), message, mutated), ErrInvalidSignature)
	}

	mutatedMessage := append([]byte{}, message...)
	mutatedMessage[0] ^= 0x01
	assert.ErrorIs(t, Verify(account.PublicKey().ToBytes(), mutatedMessage, sig), ErrInvalidSignature)

	other := testutil.GenerateSolanaKeys(t, 1)[0]
	assert.ErrorIs(t, Verify(other, message, sig), ErrInvalidSignature)
}

func TestVerify_MalformedInput(t *testing.T) {
	key := testutil.GenerateSolanaKeypair(t)
	pub := key.Public().(ed25519.PublicKey)
	sig := ed25519.Sign(key, []byte("msg"))

	for _, tc := range []struct {
		pub     []byte
		message []byte
		sig     []byte
		field   string
	}{
		{pub: pub, message: nil, sig: sig, field: "message"},
		{pub: pub[:31], message: []byte("msg"), sig: sig, field: "public key"},
		{pub: pub, message: []byte("msg"), sig: sig[:63], field: "signature"},
		{pub: pub, message: []byte("msg"), sig: append(sig, 0), field: "signature"},
	} {
		err := Verify(tc.pub, tc.message, tc.sig)

		var validationErr *common.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, tc.field, validationErr.Field)
	}

	err := VerifyBase58("invalid", []byte("msg"), base58.Encode(sig))
	assert.True(t, errors.As(err, new(*common.ValidationError)))

	err = VerifyBase58(base58.Encode(pub), []byte("msg"), "0OIl")
	assert.True(t, errors.As(err, new(*common.ValidationError)))

	err = VerifyBase58(base58.Encode(key), []byte("msg"), base58.Encode(sig))
	assert.True(t, errors.As(err, new(*common.ValidationError)))
}
