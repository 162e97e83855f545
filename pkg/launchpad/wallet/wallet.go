// Package wallet defines the external signer the launchpad hands assembled
// transactions to, and a keypair backed implementation of it.
package wallet

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
)

var (
	ErrSigningDeclined = errors.New("signing declined by user")
	ErrNotConnected    = errors.New("wallet not connected")
	ErrNotFeePayer     = errors.New("wallet is not the transaction fee payer")
)

// Signer is a user controlled wallet. Its key material never leaves it.
type Signer interface {
	// Identity returns the wallet's address, if a wallet is connected.
	Identity() (ed25519.PublicKey, bool)

	// CoSignAndBroadcast adds the wallet's signature to txn and submits it to
	// the ledger. The transaction's signature is returned even if submission
	// fails. ErrSigningDeclined is returned when the user refuses.
	CoSignAndBroadcast(ctx context.Context, txn *solana.Transaction) (solana.Signature, error)

	// SignMessage returns the wallet's detached signature over message.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// Submitter sends signed transactions to the ledger. Both solana.Client and
// the in-memory ledger satisfy it.
type Submitter interface {
	SubmitTransaction(ctx context.Context, txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error)
}
