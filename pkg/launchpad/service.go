// Package launchpad runs the user facing workflows: balance and faucet
// queries, transfers, token creation and message signing.
package launchpad

import (
	"context"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/assembly"
	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/launchpad/compose"
	"github.com/code-payments/launchpad-server/pkg/launchpad/failure"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/launchpad/signature"
	"github.com/code-payments/launchpad-server/pkg/launchpad/sizing"
	"github.com/code-payments/launchpad-server/pkg/launchpad/submission"
	"github.com/code-payments/launchpad-server/pkg/launchpad/wallet"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	metricsStructName = "launchpad.service"

	workflowEventName = "LaunchpadWorkflow"

	WorkflowBalance     = "balance"
	WorkflowAirdrop     = "airdrop"
	WorkflowTransfer    = "transfer"
	WorkflowCreateToken = "create_token"
	WorkflowSignMessage = "sign_message"

	balanceDisplayPrecision = 3
)

type Service struct {
	log         *logrus.Entry
	conf        *conf
	environment solana.Environment

	ledger    ledger.Ledger
	signer    wallet.Signer
	sizer     *sizing.Sizer
	assembler *assembly.Assembler
	pipeline  *submission.Pipeline

	tokens *tokenList
}

func NewService(
	ledger ledger.Ledger,
	signer wallet.Signer,
	environment solana.Environment,
	configProvider ConfigProvider,
) *Service {
	conf := configProvider()

	return &Service{
		log:         logrus.StandardLogger().WithField("type", "launchpad/service"),
		conf:        conf,
		environment: environment,
		ledger:      ledger,
		signer:      signer,
		sizer:       sizing.NewSizer(ledger),
		assembler:   assembly.NewAssembler(ledger),
		pipeline:    submission.NewPipeline(signer, ledger),
		tokens:      newTokenList(int(conf.createdTokenHistory.Get(context.Background()))),
	}
}

type Balance struct {
	Address  string
	Lamports uint64

	// Display is the balance in SOL, rounded for display.
	Display string
}

// GetBalance returns the balance of address, or of the connected wallet when
// address is empty.
func (s *Service) GetBalance(ctx context.Context, address string) (*Balance, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetBalance")
	defer tracer.End()

	log := s.log.WithField("method", "GetBalance")

	account, err := s.resolveAccount(address)
	if err != nil {
		return nil, s.fail(ctx, log, WorkflowBalance, "", solana.Signature{}, err)
	}
	log = log.WithField("account", account.PublicKey().ToBase58())

	lamports, err := s.ledger.GetAccountBalance(ctx, account.PublicKey().ToBytes())
	if err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, WorkflowBalance, "", solana.Signature{}, errors.Wrap(err, "error getting balance"))
	}

	return &Balance{
		Address:  account.PublicKey().ToBase58(),
		Lamports: lamports,
		Display:  common.FormatBaseUnits(lamports, common.NativeDecimals, balanceDisplayPrecision),
	}, nil
}

type Airdrop struct {
	Signature   solana.Signature
	Lamports    uint64
	ExplorerURL string
}

// RequestAirdrop asks the ledger's faucet for amount SOL on behalf of the
// connected wallet.
func (s *Service) RequestAirdrop(ctx context.Context, amount string) (*Airdrop, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RequestAirdrop")
	defer tracer.End()

	log := s.log.WithFields(logrus.Fields{
		"method": "RequestAirdrop",
		"amount": amount,
	})

	owner, err := s.connectedAccount()
	if err != nil {
		return nil, s.fail(ctx, log, WorkflowAirdrop, "", solana.Signature{}, err)
	}

	lamports, err := s.validateAirdrop(ctx, amount)
	if err != nil {
		return nil, s.fail(ctx, log, WorkflowAirdrop, "", solana.Signature{}, err)
	}

	sig, err := s.ledger.RequestTestFunds(ctx, owner.PublicKey().ToBytes(), lamports)
	if err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, WorkflowAirdrop, "", solana.Signature{}, err)
	}

	log.WithField("signature", sig.ToBase58()).Info("airdrop requested")
	s.recordSuccess(ctx, WorkflowAirdrop, "")

	return &Airdrop{
		Signature:   sig,
		Lamports:    lamports,
		ExplorerURL: s.environment.ExplorerURL(sig),
	}, nil
}

func (s *Service) validateAirdrop(ctx context.Context, amount string) (uint64, error) {
	if s.environment == solana.EnvironmentProd || !s.conf.airdropEnabled.Get(ctx) {
		return 0, common.NewValidationError("network", "airdrops are only available on test networks")
	}

	lamports, err := common.ToBaseUnits("amount", amount, common.NativeDecimals)
	if err != nil {
		return 0, err
	}
	if lamports == 0 {
		return 0, common.NewValidationError("amount", "must be greater than zero")
	}

	maxLamports := s.conf.maxAirdropLamports.Get(ctx)
	if lamports > maxLamports {
		return 0, common.NewValidationError("amount", "at most %s SOL can be requested at once", common.FormatBaseUnits(maxLamports, common.NativeDecimals, balanceDisplayPrecision))
	}
	return lamports, nil
}

type TransferResult struct {
	Receipt     *submission.Receipt
	Lamports    uint64
	Destination string
	ExplorerURL string
}

// Transfer sends amount SOL from the connected wallet to destination.
func (s *Service) Transfer(ctx context.Context, destination, amount, memo string) (*TransferResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Transfer")
	defer tracer.End()

	workflow := s.newWorkflow(WorkflowTransfer)
	log := s.log.WithFields(logrus.Fields{
		"method":   "Transfer",
		"workflow": workflow.ID.String(),
	})

	owner, err := s.connectedAccount()
	if err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}

	plan, err := s.composer(ctx).ComposeTransfer(owner, destination, amount, memo)
	if err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}

	receipt, err := s.assembleAndSubmit(ctx, workflow, owner, plan.Instructions)
	if err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), workflow.Signature(), err)
	}

	s.recordSuccess(ctx, workflow.Kind, workflow.ID.String())

	return &TransferResult{
		Receipt:     receipt,
		Lamports:    plan.Lamports,
		Destination: plan.Destination.PublicKey().ToBase58(),
		ExplorerURL: s.environment.ExplorerURL(receipt.Signature),
	}, nil
}

// CreateToken creates a Token-2022 mint with embedded metadata and mints the
// full supply to the connected wallet.
func (s *Service) CreateToken(ctx context.Context, req *compose.TokenRequest) (*CreatedToken, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateToken")
	defer tracer.End()

	workflow := s.newWorkflow(WorkflowCreateToken)
	log := s.log.WithFields(logrus.Fields{
		"method":   "CreateToken",
		"workflow": workflow.ID.String(),
	})

	owner, err := s.connectedAccount()
	if err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}

	plan, err := s.composer(ctx).ComposeTokenCreation(ctx, owner, req)
	if err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}
	if err := compose.VerifyTokenCreationOrder(plan.Instructions); err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}

	log = log.WithField("mint", plan.Mint.PublicKey().ToBase58())

	mintSigner, err := plan.Mint.Signer()
	if err != nil {
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), solana.Signature{}, err)
	}

	receipt, err := s.assembleAndSubmit(ctx, workflow, owner, plan.Instructions, mintSigner)
	if err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, workflow.Kind, workflow.ID.String(), workflow.Signature(), err)
	}

	token := CreatedToken{
		Mint:              plan.Mint.PublicKey().ToBase58(),
		AssociatedAccount: plan.AssociatedAccount.PublicKey().ToBase58(),
		Signature:         receipt.Signature.ToBase58(),
		Name:              req.Name,
		Symbol:            req.Symbol,
		Decimals:          req.Decimals,
		Supply:            req.Supply,
		ExplorerURL:       s.environment.ExplorerURL(receipt.Signature),
		CreatedAt:         receipt.ConfirmedAt,
	}
	s.tokens.add(token)

	log.WithField("signature", token.Signature).Info("token created")
	s.recordSuccess(ctx, workflow.Kind, workflow.ID.String())

	return &token, nil
}

// CreatedTokens returns the tokens created by this service, newest first.
func (s *Service) CreatedTokens() []CreatedToken {
	return s.tokens.list()
}

type SignedMessage struct {
	PublicKey string
	Signature string
}

// SignAndVerifyMessage has the connected wallet sign message and verifies the
// returned signature locally before handing it back.
func (s *Service) SignAndVerifyMessage(ctx context.Context, message string) (*SignedMessage, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SignAndVerifyMessage")
	defer tracer.End()

	log := s.log.WithField("method", "SignAndVerifyMessage")

	owner, err := s.connectedAccount()
	if err != nil {
		return nil, s.fail(ctx, log, WorkflowSignMessage, "", solana.Signature{}, err)
	}

	if len(message) == 0 {
		return nil, s.fail(ctx, log, WorkflowSignMessage, "", solana.Signature{}, common.NewValidationError("message", "is required"))
	}

	sig, err := s.signer.SignMessage(ctx, []byte(message))
	if err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, WorkflowSignMessage, "", solana.Signature{}, err)
	}

	if err := signature.Verify(owner.PublicKey().ToBytes(), []byte(message), sig); err != nil {
		tracer.OnError(err)
		return nil, s.fail(ctx, log, WorkflowSignMessage, "", solana.Signature{}, err)
	}

	s.recordSuccess(ctx, WorkflowSignMessage, "")

	return &SignedMessage{
		PublicKey: owner.PublicKey().ToBase58(),
		Signature: base58.Encode(sig),
	}, nil
}

// VerifyMessage checks a base58 encoded signature over message by the base58
// encoded address.
func (s *Service) VerifyMessage(address, message, sig string) error {
	if len(message) == 0 {
		return common.NewValidationError("message", "is required")
	}
	return signature.VerifyBase58(address, []byte(message), sig)
}

func (s *Service) composer(ctx context.Context) *compose.Composer {
	maxSymbolLength := s.conf.maxSymbolLength.Get(ctx)
	if maxSymbolLength > math.MaxInt32 {
		maxSymbolLength = math.MaxInt32
	}

	// Supply scaling bounds the decimals a mint can use.
	maxDecimals := s.conf.maxDecimals.Get(ctx)
	if maxDecimals > common.MaxDecimals {
		s.log.WithField("max_decimals", maxDecimals).Warn("configured max decimals is out of range, using the supported limit")
		maxDecimals = common.MaxDecimals
	}

	return compose.NewComposer(
		s.sizer,
		compose.WithMaxSymbolLength(int(maxSymbolLength)),
		compose.WithMaxDecimals(uint8(maxDecimals)),
	)
}

func (s *Service) assembleAndSubmit(ctx context.Context, workflow *submission.Workflow, owner *common.Account, instructions []solana.Instruction, ephemeral ...ed25519.PrivateKey) (*submission.Receipt, error) {
	envelope, err := s.assembler.Assemble(ctx, owner.PublicKey().ToBytes(), instructions, ephemeral...)
	if err != nil {
		if transitionErr := workflow.Transition(submission.StateFailed, err); transitionErr != nil {
			s.log.WithError(transitionErr).Warn("failure recording workflow transition")
		}
		return nil, err
	}

	return s.pipeline.Submit(ctx, workflow, envelope)
}

func (s *Service) newWorkflow(kind string) *submission.Workflow {
	return submission.NewWorkflow(kind, submission.WithListener(func(w *submission.Workflow, t submission.Transition) {
		log := s.log.WithFields(logrus.Fields{
			"workflow": w.ID.String(),
			"kind":     w.Kind,
			"from":     t.From.String(),
			"to":       t.To.String(),
		})
		if t.Err != nil {
			log = log.WithError(t.Err)
		}
		log.Debug("workflow transition")
	}))
}

func (s *Service) connectedAccount() (*common.Account, error) {
	identity, ok := s.signer.Identity()
	if !ok {
		return nil, common.NewValidationError("wallet", "please connect your wallet first")
	}

	account, err := common.NewAccountFromPublicKeyBytes(identity)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet identity")
	}
	return account, nil
}

func (s *Service) resolveAccount(address string) (*common.Account, error) {
	if len(address) == 0 {
		return s.connectedAccount()
	}
	return compose.ParseAddress("address", address)
}

func (s *Service) fail(ctx context.Context, log *logrus.Entry, workflow, workflowID string, sig solana.Signature, err error) error {
	classification := failure.Classify(err)

	log.WithError(err).WithField("category", classification.Category).Info("workflow failed")

	metrics.RecordEvent(ctx, workflowEventName, map[string]interface{}{
		"workflow":    workflow,
		"workflow_id": workflowID,
		"outcome":     string(classification.Category),
	})

	return &WorkflowError{
		Workflow:       workflow,
		WorkflowID:     workflowID,
		Signature:      sig,
		Classification: classification,
		Err:            err,
	}
}

func (s *Service) recordSuccess(ctx context.Context, workflow, workflowID string) {
	metrics.RecordEvent(ctx, workflowEventName, map[string]interface{}{
		"workflow":    workflow,
		"workflow_id": workflowID,
		"outcome":     "success",
	})
}
