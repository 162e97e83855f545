package launchpad

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/launchpad-server/pkg/launchpad/compose"
	"github.com/code-payments/launchpad-server/pkg/launchpad/failure"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger/memory"
	"github.com/code-payments/launchpad-server/pkg/launchpad/signature"
	"github.com/code-payments/launchpad-server/pkg/launchpad/submission"
	"github.com/code-payments/launchpad-server/pkg/launchpad/wallet"
	"github.com/code-payments/launchpad-server/pkg/rate"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
	"github.com/code-payments/launchpad-server/pkg/testutil"
)

type testEnv struct {
	ledger  *memory.Ledger
	key     ed25519.PrivateKey
	owner   ed25519.PublicKey
	service *Service
}

type envOption func(*envConfig)

type envConfig struct {
	ledgerOpts  []memory.Option
	approver    wallet.Approver
	submitter   func(*memory.Ledger) wallet.Submitter
	ledger      func(*memory.Ledger) ledger.Ledger
	environment solana.Environment
	overrides   *testOverrides
}

func setup(t *testing.T, opts ...envOption) *testEnv {
	c := &envConfig{
		approver:    wallet.NewAutoApprover(),
		submitter:   func(l *memory.Ledger) wallet.Submitter { return l },
		ledger:      func(l *memory.Ledger) ledger.Ledger { return l },
		environment: solana.EnvironmentDev,
		overrides:   &testOverrides{},
	}
	for _, opt := range opts {
		opt(c)
	}

	l := memory.New(c.ledgerOpts...)
	key := testutil.GenerateSolanaKeypair(t)
	signer := wallet.NewLocalSigner(key, c.submitter(l), c.approver)

	return &testEnv{
		ledger:  l,
		key:     key,
		owner:   key.Public().(ed25519.PublicKey),
		service: NewService(c.ledger(l), signer, c.environment, withManualTestOverrides(c.overrides)),
	}
}

func assertCategory(t *testing.T, err error, category failure.Category) *WorkflowError {
	var workflowErr *WorkflowError
	require.True(t, errors.As(err, &workflowErr), "unexpected error: %v", err)
	assert.Equal(t, category, workflowErr.Classification.Category)
	assert.Equal(t, workflowErr.Err.Error(), workflowErr.Classification.Diagnostic)
	return workflowErr
}

func TestGetBalance(t *testing.T) {
	env := setup(t)
	env.ledger.Fund(env.owner, 1_500_000_000)

	balance, err := env.service.GetBalance(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000_000, balance.Lamports)
	assert.Equal(t, "1.500", balance.Display)

	other := testutil.NewRandomAccount(t)
	env.ledger.Fund(other.PublicKey().ToBytes(), 1234)
	balance, err = env.service.GetBalance(context.Background(), other.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.EqualValues(t, 1234, balance.Lamports)
	assert.Equal(t, "0.000", balance.Display)

	_, err = env.service.GetBalance(context.Background(), "invalid")
	assertCategory(t, err, failure.CategoryValidation)
}

func TestRequestAirdrop(t *testing.T) {
	env := setup(t, func(c *envConfig) {
		c.ledgerOpts = append(c.ledgerOpts, memory.WithFaucetLimiter(rate.NewLocalRateLimiter(xrate.Limit(0.01), 1)))
	})

	for _, amount := range []string{"0", "2.5", "abc", "0.0000000001"} {
		_, err := env.service.RequestAirdrop(context.Background(), amount)
		assertCategory(t, err, failure.CategoryValidation)
	}

	airdrop, err := env.service.RequestAirdrop(context.Background(), "2")
	require.NoError(t, err)
	assert.EqualValues(t, 2_000_000_000, airdrop.Lamports)
	assert.Contains(t, airdrop.ExplorerURL, "cluster=devnet")

	balance, err := env.service.GetBalance(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2_000_000_000, balance.Lamports)

	_, err = env.service.RequestAirdrop(context.Background(), "0.1")
	workflowErr := assertCategory(t, err, failure.CategoryRateLimited)
	assert.Contains(t, workflowErr.Classification.Remediation, failure.FaucetURL)
}

func TestRequestAirdrop_Disabled(t *testing.T) {
	env := setup(t, func(c *envConfig) { c.environment = solana.EnvironmentProd })
	_, err := env.service.RequestAirdrop(context.Background(), "1")
	assertCategory(t, err, failure.CategoryValidation)

	env = setup(t, func(c *envConfig) { c.overrides.airdropDisabled = true })
	_, err = env.service.RequestAirdrop(context.Background(), "1")
	assertCategory(t, err, failure.CategoryValidation)

	env = setup(t, func(c *envConfig) { c.overrides.maxAirdropLamports = 100_000_000 })
	_, err = env.service.RequestAirdrop(context.Background(), "0.2")
	assertCategory(t, err, failure.CategoryValidation)
	_, err = env.service.RequestAirdrop(context.Background(), "0.1")
	assert.NoError(t, err)
}

func TestTransfer(t *testing.T) {
	env := setup(t)
	env.ledger.Fund(env.owner, 2_000_000_000)
	receiver := testutil.NewRandomAccount(t)

	result, err := env.service.Transfer(context.Background(), receiver.PublicKey().ToBase58(), "1.5", "rent")
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000_000, result.Lamports)
	assert.Equal(t, receiver.PublicKey().ToBase58(), result.Destination)
	assert.Contains(t, result.ExplorerURL, result.Receipt.Signature.ToBase58())

	balance, err := env.service.GetBalance(context.Background(), receiver.PublicKey().ToBase58())
	require.NoError(t, err)
	assert.EqualValues(t, 1_500_000_000, balance.Lamports)

	balance, err = env.service.GetBalance(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 500_000_000-memory.LamportsPerSignature, balance.Lamports)

	_, err = env.service.Transfer(context.Background(), receiver.PublicKey().ToBase58(), "1", "")
	workflowErr := assertCategory(t, err, failure.CategoryInsufficientFunds)
	assert.Equal(t, WorkflowTransfer, workflowErr.Workflow)
	assert.NotEmpty(t, workflowErr.WorkflowID)
	assert.NotEqual(t, solana.Signature{}, workflowErr.Signature)

	_, err = env.service.Transfer(context.Background(), "nope", "1", "")
	assertCategory(t, err, failure.CategoryValidation)
}

func TestTransfer_Declined(t *testing.T) {
	env := setup(t, func(c *envConfig) { c.approver = wallet.NewDenyingApprover() })
	env.ledger.Fund(env.owner, 2_000_000_000)

	_, err := env.service.Transfer(context.Background(), testutil.NewRandomAccount(t).PublicKey().ToBase58(), "1", "")
	assertCategory(t, err, failure.CategorySigningDeclined)

	_, err = env.service.SignAndVerifyMessage(context.Background(), "hello")
	assertCategory(t, err, failure.CategorySigningDeclined)
}

func TestTransfer_StaleFreshnessBinding(t *testing.T) {
	env := setup(t, func(c *envConfig) {
		c.submitter = func(l *memory.Ledger) wallet.Submitter { return &slowSubmitter{ledger: l} }
	})
	env.ledger.Fund(env.owner, 2_000_000_000)

	_, err := env.service.Transfer(context.Background(), testutil.NewRandomAccount(t).PublicKey().ToBase58(), "1", "")
	assertCategory(t, err, failure.CategoryStaleFreshnessBinding)
}

func TestUnreachableLedger(t *testing.T) {
	env := setup(t, func(c *envConfig) {
		c.ledger = func(l *memory.Ledger) ledger.Ledger { return &unreachableLedger{Ledger: l} }
	})
	env.ledger.Fund(env.owner, 2_000_000_000)

	_, err := env.service.GetBalance(context.Background(), "")
	workflowErr := assertCategory(t, err, failure.CategoryUnknown)
	assert.Contains(t, workflowErr.Classification.Diagnostic, "error getting balance")
	assert.Contains(t, workflowErr.Classification.Diagnostic, "connection refused")

	_, err = env.service.Transfer(context.Background(), testutil.NewRandomAccount(t).PublicKey().ToBase58(), "1", "")
	workflowErr = assertCategory(t, err, failure.CategoryUnknown)
	assert.Contains(t, workflowErr.Classification.Diagnostic, "getLatestBlockhash() failed to send request")
}

func TestCreateToken(t *testing.T) {
	env := setup(t)
	env.ledger.Fund(env.owner, 1_000_000_000)

	created, err := env.service.CreateToken(context.Background(), &compose.TokenRequest{
		Name:     "Test",
		Symbol:   "TST",
		Decimals: 9,
		Supply:   1_000_000,
		Image:    "https://example.com/tst.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "Test", created.Name)
	assert.Equal(t, "TST", created.Symbol)
	assert.Contains(t, created.ExplorerURL, created.Signature)

	mint := mustParse(t, created.Mint)
	size, owner, ok := env.ledger.AccountSize(mint)
	require.True(t, ok)
	assert.EqualValues(t, 234, size)
	assert.EqualValues(t, token.ProgramKey, owner)

	ata, err := token.GetAssociatedAccount(env.owner, mint)
	require.NoError(t, err)
	assert.Equal(t, created.AssociatedAccount, base58.Encode(ata))
	assert.EqualValues(t, 1_000_000_000_000_000, env.ledger.TokenBalance(ata))

	rent, err := env.ledger.GetAccountBalance(context.Background(), mint)
	require.NoError(t, err)
	associatedRent, err := env.ledger.GetAccountBalance(context.Background(), ata)
	require.NoError(t, err)
	assert.NotZero(t, associatedRent)

	balance, err := env.service.GetBalance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1_000_000_000-rent-associatedRent-2*memory.LamportsPerSignature, balance.Lamports)

	second, err := env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Second", Symbol: "TWO", Supply: 1})
	require.NoError(t, err)

	tokens := env.service.CreatedTokens()
	require.Len(t, tokens, 2)
	assert.Equal(t, second.Mint, tokens[0].Mint)
	assert.Equal(t, created.Mint, tokens[1].Mint)
}

func TestCreateToken_Failures(t *testing.T) {
	env := setup(t)

	_, err := env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: strings.Repeat("T", 11), Supply: 1})
	assertCategory(t, err, failure.CategoryValidation)

	// unfunded wallet
	_, err = env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Supply: 1})
	assertCategory(t, err, failure.CategoryInsufficientFunds)
	assert.Empty(t, env.service.CreatedTokens())

	env = setup(t, func(c *envConfig) {
		c.ledger = func(l *memory.Ledger) ledger.Ledger { return &rentlessLedger{Ledger: l} }
	})
	_, err = env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Supply: 1})
	assertCategory(t, err, failure.CategorySizing)
}

func TestCreateToken_MaxDecimalsConfig(t *testing.T) {
	// 256 would truncate to zero as a byte
	env := setup(t, func(c *envConfig) { c.overrides.maxDecimals = 256 })
	env.ledger.Fund(env.owner, 1_000_000_000)

	created, err := env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Decimals: 6, Supply: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 6, created.Decimals)

	_, err = env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Decimals: 10, Supply: 1})
	assertCategory(t, err, failure.CategoryValidation)

	env = setup(t, func(c *envConfig) { c.overrides.maxDecimals = 4 })
	env.ledger.Fund(env.owner, 1_000_000_000)

	_, err = env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Decimals: 6, Supply: 1})
	assertCategory(t, err, failure.CategoryValidation)
}

func TestCreatedTokens_History(t *testing.T) {
	env := setup(t, func(c *envConfig) { c.overrides.createdTokenHistory = 2 })
	env.ledger.Fund(env.owner, 1_000_000_000)

	var mints []string
	for _, symbol := range []string{"A", "B", "C"} {
		created, err := env.service.CreateToken(context.Background(), &compose.TokenRequest{Name: symbol, Symbol: symbol, Supply: 1})
		require.NoError(t, err)
		mints = append(mints, created.Mint)
	}

	tokens := env.service.CreatedTokens()
	require.Len(t, tokens, 2)
	assert.Equal(t, mints[2], tokens[0].Mint)
	assert.Equal(t, mints[1], tokens[1].Mint)
}

func TestSignAndVerifyMessage(t *testing.T) {
	env := setup(t)

	signed, err := env.service.SignAndVerifyMessage(context.Background(), "hello launchpad")
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(env.owner), signed.PublicKey)

	require.NoError(t, env.service.VerifyMessage(signed.PublicKey, "hello launchpad", signed.Signature))
	assert.ErrorIs(t, env.service.VerifyMessage(signed.PublicKey, "hello launchpad!", signed.Signature), signature.ErrInvalidSignature)
	assert.Error(t, env.service.VerifyMessage(signed.PublicKey, "", signed.Signature))

	_, err = env.service.SignAndVerifyMessage(context.Background(), "")
	assertCategory(t, err, failure.CategoryValidation)
}

func TestNotConnected(t *testing.T) {
	l := memory.New()
	service := NewService(l, wallet.NewLocalSigner(nil, l, wallet.NewAutoApprover()), solana.EnvironmentDev, withManualTestOverrides(&testOverrides{}))

	_, err := service.GetBalance(context.Background(), "")
	assertCategory(t, err, failure.CategoryValidation)

	_, err = service.Transfer(context.Background(), testutil.NewRandomAccount(t).PublicKey().ToBase58(), "1", "")
	assertCategory(t, err, failure.CategoryValidation)

	_, err = service.CreateToken(context.Background(), &compose.TokenRequest{Name: "Test", Symbol: "TST", Supply: 1})
	assertCategory(t, err, failure.CategoryValidation)
}

func TestWorkflowError(t *testing.T) {
	cause := submission.ErrExpired
	err := &WorkflowError{
		Workflow:       WorkflowTransfer,
		Classification: failure.Classify(cause),
		Err:            cause,
	}
	assert.ErrorIs(t, err, submission.ErrExpired)
	assert.Contains(t, err.Error(), "transfer failed (stale_freshness_binding)")
}

func mustParse(t *testing.T, address string) ed25519.PublicKey {
	key, err := solana.ParsePublicKey(address)
	require.NoError(t, err)
	return key
}

// slowSubmitter submits only after the transaction's blockhash has expired.
type slowSubmitter struct {
	ledger *memory.Ledger
}

func (s *slowSubmitter) SubmitTransaction(ctx context.Context, txn solana.Transaction, commitment solana.Commitment) (solana.Signature, error) {
	s.ledger.AdvanceBlockHeight(memory.BlockhashValidity + 1)
	return s.ledger.SubmitTransaction(ctx, txn, commitment)
}

type rentlessLedger struct {
	ledger.Ledger
}

func (l *rentlessLedger) GetRentExemptMinimum(_ context.Context, _ uint64) (uint64, error) {
	return 0, errors.New("getMinimumBalanceForRentExemption() failed to send request")
}

// unreachableLedger fails balance and blockhash queries the way the RPC client
// does when the node refuses the connection.
type unreachableLedger struct {
	ledger.Ledger
}

func (l *unreachableLedger) GetAccountBalance(_ context.Context, _ ed25519.PublicKey) (uint64, error) {
	return 0, fmt.Errorf("getBalance() failed to send request: %w", refused())
}

func (l *unreachableLedger) GetFreshnessBinding(_ context.Context) (*ledger.FreshnessBinding, error) {
	return nil, fmt.Errorf("getLatestBlockhash() failed to send request: %w", refused())
}

func refused() error {
	return fmt.Errorf("Post \"http://localhost:8899\": dial tcp 127.0.0.1:8899: %w", os.NewSyscallError("connect", syscall.ECONNREFUSED))
}
