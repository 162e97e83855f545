package ledger

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
)

var (
	// ErrBlockHeightExceeded indicates the ledger advanced past the freshness
	// binding's last valid block height before the transaction was observed.
	// The transaction can no longer land.
	ErrBlockHeightExceeded = errors.New("block height exceeded")
)

// FreshnessBinding ties a transaction to a recent ledger state. It must be
// fetched immediately before assembly and never reused for a rebuilt
// transaction.
type FreshnessBinding struct {
	Blockhash            solana.Blockhash
	LastValidBlockHeight uint64
}

// Ledger is the subset of ledger functionality required to size, bind and
// confirm transactions.
type Ledger interface {
	// GetRentExemptMinimum returns the minimum balance for an account of size
	// bytes to be exempt from rent.
	GetRentExemptMinimum(ctx context.Context, size uint64) (uint64, error)

	// GetFreshnessBinding returns the latest blockhash and the block height
	// after which transactions referencing it are rejected.
	GetFreshnessBinding(ctx context.Context) (*FreshnessBinding, error)

	// GetAccountBalance returns the account's balance in lamports. Accounts
	// that don't exist have a zero balance.
	GetAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error)

	// AwaitConfirmation blocks until the transaction is confirmed, fails on
	// chain (a *solana.TransactionError is returned), the ledger advances past
	// lastValidBlockHeight (ErrBlockHeightExceeded) or ctx is done.
	AwaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error

	// RequestTestFunds asks the cluster faucet for lamports. Only available
	// on test clusters.
	RequestTestFunds(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error)
}
