// Package memory provides an in-memory ledger for tests and offline runs. It
// executes the system transfers, account creations, associated account
// creations and token mints it understands, and treats every other
// instruction as a successful no-op.
package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/rate"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
)

const (
	// BlockhashValidity is the number of blocks a blockhash can be referenced
	// for after it was produced.
	BlockhashValidity = 150

	// LamportsPerSignature is the fee charged for each transaction signature.
	LamportsPerSignature = 5000

	// Reference: https://github.com/solana-labs/solana/blob/master/sdk/program/src/rent.rs
	accountStorageOverhead    = 128
	lamportsPerByteYear       = 3480
	exemptionThresholdInYears = 2
	confirmationPollInterval  = 5 * time.Millisecond
	systemAccountAlreadyInUse = solana.CustomError(0)

	// Token-2022 associated accounts carry the immutable owner extension,
	// which has no data.
	associatedAccountSize = token.AccountSize + token.AccountTypeSize + token.TypeSize + token.LengthSize
)

type account struct {
	owner ed25519.PublicKey
	size  uint64
}

type result struct {
	err *solana.TransactionError
}

// Ledger is an in-memory ledger.Ledger. It additionally accepts submitted
// transactions, applying the same checks a cluster's preflight simulation
// would.
type Ledger struct {
	log    *logrus.Entry
	faucet rate.Limiter

	sync.Mutex
	blockHeight   uint64
	blockhashes   map[solana.Blockhash]uint64
	balances      map[string]uint64
	accounts      map[string]*account
	tokenBalances map[string]uint64
	processed     map[solana.Signature]*result
}

type Option func(*Ledger)

// WithFaucetLimiter throttles RequestTestFunds per recipient.
func WithFaucetLimiter(limiter rate.Limiter) Option {
	return func(l *Ledger) {
		l.faucet = limiter
	}
}

// New returns an empty ledger at block height 1.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		log:           logrus.StandardLogger().WithField("type", "launchpad/ledger/memory"),
		faucet:        &rate.NoLimiter{},
		blockHeight:   1,
		blockhashes:   make(map[solana.Blockhash]uint64),
		balances:      make(map[string]uint64),
		accounts:      make(map[string]*account),
		tokenBalances: make(map[string]uint64),
		processed:     make(map[solana.Signature]*result),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RentExemptMinimum is the rent exempt balance for an account of size bytes.
func RentExemptMinimum(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThresholdInYears
}

// GetRentExemptMinimum implements ledger.Ledger.GetRentExemptMinimum
func (l *Ledger) GetRentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return RentExemptMinimum(size), nil
}

// GetFreshnessBinding implements ledger.Ledger.GetFreshnessBinding. Every call
// produces a new blockhash.
func (l *Ledger) GetFreshnessBinding(ctx context.Context) (*ledger.FreshnessBinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, errors.Wrap(err, "failed to generate blockhash")
	}

	l.Lock()
	defer l.Unlock()

	hash := solana.Blockhash(sha256.Sum256(seed[:]))
	lastValid := l.blockHeight + BlockhashValidity
	l.blockhashes[hash] = lastValid

	return &ledger.FreshnessBinding{
		Blockhash:            hash,
		LastValidBlockHeight: lastValid,
	}, nil
}

// GetAccountBalance implements ledger.Ledger.GetAccountBalance
func (l *Ledger) GetAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.Lock()
	defer l.Unlock()
	return l.balances[string(account)], nil
}

// AwaitConfirmation implements ledger.Ledger.AwaitConfirmation
func (l *Ledger) AwaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	for {
		l.Lock()
		res, ok := l.processed[sig]
		height := l.blockHeight
		l.Unlock()

		if ok {
			if res.err != nil {
				return res.err
			}
			return nil
		}
		if height > lastValidBlockHeight {
			return ledger.ErrBlockHeightExceeded
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmationPollInterval):
		}
	}
}

// RequestTestFunds implements ledger.Ledger.RequestTestFunds
func (l *Ledger) RequestTestFunds(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}

	allowed, err := l.faucet.Allow(base58.Encode(account))
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error checking faucet limit")
	}
	if !allowed {
		return solana.Signature{}, errors.Wrap(solana.ErrRateLimited, "429 Too Many Requests: airdrop limit reached")
	}

	var sig solana.Signature
	if _, err := rand.Read(sig[:]); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to generate signature")
	}

	l.Lock()
	defer l.Unlock()

	l.balances[string(account)] += lamports
	l.processed[sig] = &result{}
	return sig, nil
}

// SubmitTransaction executes the transaction atomically. Failures are returned
// as *solana.TransactionError without any state change, mirroring preflight
// simulation.
func (l *Ledger) SubmitTransaction(ctx context.Context, txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	if err := ctx.Err(); err != nil {
		return solana.Signature{}, err
	}
	if len(txn.Signatures) == 0 {
		return solana.Signature{}, solana.ErrMissingSignature
	}

	sig := txn.Signatures[0]
	log := l.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": sig.ToBase58(),
	})

	if err := txn.VerifySignatures(); err != nil {
		log.WithError(err).Debug("signature verification failed")
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	l.Lock()
	defer l.Unlock()

	if _, ok := l.processed[sig]; ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	lastValid, ok := l.blockhashes[txn.Message.RecentBlockhash]
	if !ok || l.blockHeight > lastValid {
		return sig, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	state := l.snapshot()

	fee := uint64(LamportsPerSignature * len(txn.Signatures))
	payer := string(txn.Payer())
	if state.balances[payer] < fee {
		return sig, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}
	state.balances[payer] -= fee

	for i := range txn.Message.Instructions {
		if txErr := state.execute(txn.Message, i); txErr != nil {
			log.WithField("error", txErr.Error()).Debug("transaction failed")
			return sig, txErr
		}
	}

	l.balances = state.balances
	l.accounts = state.accounts
	l.tokenBalances = state.tokenBalances
	l.processed[sig] = &result{}

	log.Debug("transaction processed")
	return sig, nil
}

// Fund credits lamports to account.
func (l *Ledger) Fund(account ed25519.PublicKey, lamports uint64) {
	l.Lock()
	defer l.Unlock()
	l.balances[string(account)] += lamports
}

// AdvanceBlockHeight moves the ledger forward by n blocks, expiring any
// freshness binding whose last valid block height is passed.
func (l *Ledger) AdvanceBlockHeight(n uint64) {
	l.Lock()
	defer l.Unlock()
	l.blockHeight += n
}

func (l *Ledger) BlockHeight() uint64 {
	l.Lock()
	defer l.Unlock()
	return l.blockHeight
}

// AccountSize returns the allocated size and owner of a created account.
func (l *Ledger) AccountSize(address ed25519.PublicKey) (size uint64, owner ed25519.PublicKey, ok bool) {
	l.Lock()
	defer l.Unlock()

	a, ok := l.accounts[string(address)]
	if !ok {
		return 0, nil, false
	}
	return a.size, a.owner, true
}

// TokenBalance returns the amount minted into a token account.
func (l *Ledger) TokenBalance(address ed25519.PublicKey) uint64 {
	l.Lock()
	defer l.Unlock()
	return l.tokenBalances[string(address)]
}

type state struct {
	balances      map[string]uint64
	accounts      map[string]*account
	tokenBalances map[string]uint64
}

func (l *Ledger) snapshot() *state {
	s := &state{
		balances:      make(map[string]uint64, len(l.balances)),
		accounts:      make(map[string]*account, len(l.accounts)),
		tokenBalances: make(map[string]uint64, len(l.tokenBalances)),
	}
	for k, v := range l.balances {
		s.balances[k] = v
	}
	for k, v := range l.accounts {
		s.accounts[k] = v
	}
	for k, v := range l.tokenBalances {
		s.tokenBalances[k] = v
	}
	return s
}

func (s *state) execute(m solana.Message, index int) *solana.TransactionError {
	if transfer, err := system.DecompileTransfer(m, index); err == nil {
		from, to := string(transfer.From), string(transfer.To)
		if s.balances[from] < transfer.Lamports {
			return solana.NewInstructionError(index, solana.InstructionErrorInsufficientFunds)
		}
		s.balances[from] -= transfer.Lamports
		s.balances[to] += transfer.Lamports
		return nil
	}

	if create, err := system.DecompileCreateAccount(m, index); err == nil {
		funder, address := string(create.Funder), string(create.Address)
		if _, exists := s.accounts[address]; exists {
			return solana.NewCustomInstructionError(index, systemAccountAlreadyInUse)
		}
		if s.balances[funder] < create.Lamports {
			return solana.NewInstructionError(index, solana.InstructionErrorInsufficientFunds)
		}
		if create.Lamports < RentExemptMinimum(create.Size) {
			return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForRent)
		}
		s.balances[funder] -= create.Lamports
		s.balances[address] += create.Lamports
		s.accounts[address] = &account{owner: create.Owner, size: create.Size}
		return nil
	}

	if create, err := token.DecompileCreateAssociatedAccount(m, index); err == nil {
		payer, address := string(create.Payer), string(create.Address)
		if !s.isTokenAccount(create.Mint) {
			return solana.NewInstructionError(index, solana.InstructionErrorInvalidAccountData)
		}
		expected, err := token.GetAssociatedAccount(create.Owner, create.Mint)
		if err != nil || !bytes.Equal(expected, create.Address) {
			return solana.NewInstructionError(index, solana.InstructionErrorInvalidAccountData)
		}
		if _, exists := s.accounts[address]; exists {
			return solana.NewCustomInstructionError(index, systemAccountAlreadyInUse)
		}
		rent := RentExemptMinimum(associatedAccountSize)
		if s.balances[payer] < rent {
			return solana.NewInstructionError(index, solana.InstructionErrorInsufficientFunds)
		}
		s.balances[payer] -= rent
		s.balances[address] += rent
		s.accounts[address] = &account{owner: token.ProgramKey, size: associatedAccountSize}
		return nil
	}

	if mintTo, err := token.DecompileMintTo(m, index); err == nil {
		if !s.isTokenAccount(mintTo.Mint) || !s.isTokenAccount(mintTo.Destination) {
			return solana.NewCustomInstructionError(index, token.ErrorUninitializedState)
		}
		s.tokenBalances[string(mintTo.Destination)] += mintTo.Amount
		return nil
	}

	return nil
}

func (s *state) isTokenAccount(address ed25519.PublicKey) bool {
	a, ok := s.accounts[string(address)]
	return ok && bytes.Equal(a.owner, token.ProgramKey)
}
