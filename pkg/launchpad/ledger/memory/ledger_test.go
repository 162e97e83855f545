package memory

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/rate"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
	_ "github.com/code-payments/launchpad-server/pkg/testutil"
)

func TestRentExemptMinimum(t *testing.T) {
	// Matches the cluster's getMinimumBalanceForRentExemption
	assert.EqualValues(t, 890_880, RentExemptMinimum(0))
	assert.EqualValues(t, 2_039_280, RentExemptMinimum(165))

	rent, err := New().GetRentExemptMinimum(context.Background(), 82)
	require.NoError(t, err)
	assert.EqualValues(t, 1_461_600, rent)
}

func TestFreshnessBinding(t *testing.T) {
	l := New()

	first, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)
	second, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Blockhash, second.Blockhash)
	assert.EqualValues(t, 1+BlockhashValidity, first.LastValidBlockHeight)
}

func TestSubmitTransaction_Transfer(t *testing.T) {
	l := New()
	sender, receiver := generateKey(t), generateKey(t)
	l.Fund(sender.Public().(ed25519.PublicKey), solana1)

	sig := submit(t, l, sender, system.Transfer(sender.Public().(ed25519.PublicKey), public(receiver), 500_000_000))

	binding, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)
	require.NoError(t, l.AwaitConfirmation(context.Background(), sig, binding.LastValidBlockHeight))

	balance, err := l.GetAccountBalance(context.Background(), public(sender))
	require.NoError(t, err)
	assert.EqualValues(t, solana1-500_000_000-LamportsPerSignature, balance)

	balance, err = l.GetAccountBalance(context.Background(), public(receiver))
	require.NoError(t, err)
	assert.EqualValues(t, 500_000_000, balance)
}

func TestSubmitTransaction_Failures(t *testing.T) {
	l := New()
	sender, receiver := generateKey(t), generateKey(t)

	// no funds for the fee
	txn := newTransaction(t, l, sender, system.Transfer(public(sender), public(receiver), 1))
	_, err := l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorInsufficientFundsForFee)

	// fee covered, transfer isn't
	l.Fund(public(sender), LamportsPerSignature)
	txn = newTransaction(t, l, sender, system.Transfer(public(sender), public(receiver), 1))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	txErr := assertTransactionError(t, err, solana.TransactionErrorInstructionError)
	assert.Equal(t, solana.InstructionErrorInsufficientFunds, txErr.InstructionError().ErrorKey())

	// nothing was charged
	balance, err := l.GetAccountBalance(context.Background(), public(sender))
	require.NoError(t, err)
	assert.EqualValues(t, LamportsPerSignature, balance)

	// expired blockhash
	l.Fund(public(sender), solana1)
	txn = newTransaction(t, l, sender, system.Transfer(public(sender), public(receiver), 1))
	l.AdvanceBlockHeight(BlockhashValidity + 1)
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorBlockhashNotFound)

	// missing signature
	txn = solana.NewTransaction(public(sender), system.Transfer(public(sender), public(receiver), 1))
	binding, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)
	txn.SetBlockhash(binding.Blockhash)
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorSignatureFailure)

	// duplicate
	txn = newTransaction(t, l, sender, system.Transfer(public(sender), public(receiver), 1))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	require.NoError(t, err)
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorDuplicateSignature)
}

func TestSubmitTransaction_CreateAccountAndMint(t *testing.T) {
	l := New()
	owner, mint := generateKey(t), generateKey(t)
	l.Fund(public(owner), solana1)

	ata, err := token.GetAssociatedAccount(public(owner), public(mint))
	require.NoError(t, err)

	// rent must cover the allocated size
	txn := newTransaction(t, l, owner, system.CreateAccount(public(owner), public(mint), token.ProgramKey, RentExemptMinimum(82)-1, 82))
	require.NoError(t, txn.Sign(mint))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorInsufficientFundsForRent)

	// minting into an uninitialized mint fails atomically
	txn = newTransaction(t, l, owner, token.MintTo(public(mint), ata, public(owner), 10))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	txErr := assertTransactionError(t, err, solana.TransactionErrorInstructionError)
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.Equal(t, token.ErrorUninitializedState, *txErr.InstructionError().CustomError())

	createAssociatedAccount, _, err := token.CreateAssociatedTokenAccount(public(owner), public(owner), public(mint))
	require.NoError(t, err)

	// minting before the destination exists fails, and the mint creation
	// ahead of it is rolled back
	txn = newTransaction(
		t,
		l,
		owner,
		system.CreateAccount(public(owner), public(mint), token.ProgramKey, RentExemptMinimum(234), 82),
		token.MintTo(public(mint), ata, public(owner), 10),
		createAssociatedAccount,
	)
	require.NoError(t, txn.Sign(mint))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	txErr = assertTransactionError(t, err, solana.TransactionErrorInstructionError)
	assert.Equal(t, 1, txErr.InstructionError().Index)
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.Equal(t, token.ErrorUninitializedState, *txErr.InstructionError().CustomError())

	_, _, ok := l.AccountSize(public(mint))
	assert.False(t, ok)
	_, _, ok = l.AccountSize(ata)
	assert.False(t, ok)
	assert.Zero(t, l.TokenBalance(ata))
	balance, err := l.GetAccountBalance(context.Background(), public(owner))
	require.NoError(t, err)
	assert.EqualValues(t, solana1, balance)

	// the associated account needs an existing mint
	txn = newTransaction(t, l, owner, createAssociatedAccount)
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	txErr = assertTransactionError(t, err, solana.TransactionErrorInstructionError)
	assert.Equal(t, solana.InstructionErrorInvalidAccountData, txErr.InstructionError().ErrorKey())

	txn = newTransaction(
		t,
		l,
		owner,
		system.CreateAccount(public(owner), public(mint), token.ProgramKey, RentExemptMinimum(234), 82),
		createAssociatedAccount,
		token.MintTo(public(mint), ata, public(owner), 10),
	)
	require.NoError(t, txn.Sign(mint))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	require.NoError(t, err)

	size, programOwner, ok := l.AccountSize(public(mint))
	require.True(t, ok)
	assert.EqualValues(t, 82, size)
	assert.EqualValues(t, token.ProgramKey, programOwner)
	assert.EqualValues(t, 10, l.TokenBalance(ata))

	size, programOwner, ok = l.AccountSize(ata)
	require.True(t, ok)
	assert.EqualValues(t, 170, size)
	assert.EqualValues(t, token.ProgramKey, programOwner)

	balance, err = l.GetAccountBalance(context.Background(), public(mint))
	require.NoError(t, err)
	assert.Equal(t, RentExemptMinimum(234), balance)

	balance, err = l.GetAccountBalance(context.Background(), ata)
	require.NoError(t, err)
	assert.Equal(t, RentExemptMinimum(170), balance)

	// the associated account can't be created twice
	txn = newTransaction(t, l, owner, createAssociatedAccount)
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorInstructionError)

	// the same account can't be created twice
	txn = newTransaction(t, l, owner, system.CreateAccount(public(owner), public(mint), token.ProgramKey, RentExemptMinimum(234), 82))
	require.NoError(t, txn.Sign(mint))
	_, err = l.SubmitTransaction(context.Background(), txn, solana.CommitmentConfirmed)
	assertTransactionError(t, err, solana.TransactionErrorInstructionError)
}

func TestAwaitConfirmation_Expired(t *testing.T) {
	l := New()

	binding, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.AdvanceBlockHeight(BlockhashValidity + 1)
	}()

	err = l.AwaitConfirmation(context.Background(), solana.Signature{1}, binding.LastValidBlockHeight)
	assert.ErrorIs(t, err, ledger.ErrBlockHeightExceeded)
}

func TestAwaitConfirmation_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := New().AwaitConfirmation(ctx, solana.Signature{1}, 1000)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestTestFunds(t *testing.T) {
	l := New(WithFaucetLimiter(rate.NewLocalRateLimiter(xrate.Limit(0.01), 1)))
	account := generateKey(t)

	sig, err := l.RequestTestFunds(context.Background(), public(account), solana1)
	require.NoError(t, err)
	require.NoError(t, l.AwaitConfirmation(context.Background(), sig, l.BlockHeight()))

	balance, err := l.GetAccountBalance(context.Background(), public(account))
	require.NoError(t, err)
	assert.EqualValues(t, solana1, balance)

	_, err = l.RequestTestFunds(context.Background(), public(account), solana1)
	assert.ErrorIs(t, err, solana.ErrRateLimited)
	assert.Contains(t, err.Error(), "429")

	// other recipients aren't affected
	_, err = l.RequestTestFunds(context.Background(), public(generateKey(t)), solana1)
	assert.NoError(t, err)
}

const solana1 = 1_000_000_000

func newTransaction(t *testing.T, l *Ledger, payer ed25519.PrivateKey, instructions ...solana.Instruction) solana.Transaction {
	binding, err := l.GetFreshnessBinding(context.Background())
	require.NoError(t, err)

	txn := solana.NewTransaction(public(payer), instructions...)
	txn.SetBlockhash(binding.Blockhash)
	require.NoError(t, txn.Sign(payer))
	return txn
}

func submit(t *testing.T, l *Ledger, payer ed25519.PrivateKey, instructions ...solana.Instruction) solana.Signature {
	sig, err := l.SubmitTransaction(context.Background(), newTransaction(t, l, payer, instructions...), solana.CommitmentConfirmed)
	require.NoError(t, err)
	return sig
}

func assertTransactionError(t *testing.T, err error, key solana.TransactionErrorKey) *solana.TransactionError {
	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error: %v", err)
	assert.Equal(t, key, txErr.ErrorKey())
	return txErr
}

func generateKey(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return key
}

func public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
