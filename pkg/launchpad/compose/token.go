package compose

import (
	"context"
	"crypto/ed25519"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/launchpad/sizing"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/netutil"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
	"github.com/code-payments/launchpad-server/pkg/solana/tokenmetadata"
)

// TokenRequest describes a new fungible token.
type TokenRequest struct {
	Name     string
	Symbol   string
	Decimals uint8

	// Supply is the number of whole tokens minted to the owner.
	Supply uint64

	// Image optionally locates the token's image. It's recorded as the
	// metadata URI.
	Image string
}

// TokenCreationPlan holds everything needed to assemble a token creation
// transaction. Mint is an ephemeral signer: the plan is its only owner and it
// must be dropped once the transaction is submitted.
type TokenCreationPlan struct {
	Owner             *common.Account
	Mint              *common.Account
	AssociatedAccount *common.Account
	Metadata          *tokenmetadata.TokenMetadata
	Footprint         *sizing.Footprint

	// Amount is the supply in base units.
	Amount uint64

	Instructions []solana.Instruction
}

// Steps reports the kind of each instruction, in order.
func (p *TokenCreationPlan) Steps() []Step {
	steps, _ := identifySteps(p.Instructions)
	return steps
}

// ComposeTokenCreation builds the instruction sequence that creates a
// Token-2022 mint with embedded metadata and mints the full supply into the
// owner's associated account. Nothing is built when validation or sizing
// fails.
func (c *Composer) ComposeTokenCreation(ctx context.Context, owner *common.Account, req *TokenRequest) (plan *TokenCreationPlan, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ComposeTokenCreation")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	log := c.log.WithField("method", "ComposeTokenCreation")

	amount, err := c.validateTokenRequest(owner, req)
	if err != nil {
		return nil, err
	}

	mint, err := common.NewRandomAccount()
	if err != nil {
		return nil, errors.Wrap(err, "error generating mint account")
	}

	ownerKey := ed25519.PublicKey(owner.PublicKey().ToBytes())
	mintKey := ed25519.PublicKey(mint.PublicKey().ToBytes())

	metadata := &tokenmetadata.TokenMetadata{
		UpdateAuthority: ownerKey,
		Mint:            mintKey,
		Name:            req.Name,
		Symbol:          req.Symbol,
		URI:             req.Image,
	}

	footprint, err := c.sizer.Size(ctx, []token.ExtensionType{token.ExtensionMetadataPointer}, metadata.PackedLen())
	if err != nil {
		return nil, err
	}

	createAssociatedAccount, associatedKey, err := token.CreateAssociatedTokenAccount(ownerKey, ownerKey, mintKey)
	if err != nil {
		return nil, err
	}
	associatedAccount, err := common.NewAccountFromPublicKeyBytes(associatedKey)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		system.CreateAccount(ownerKey, mintKey, token.ProgramKey, footprint.RentExemptLamports, footprint.AccountSize),
		token.InitializeMetadataPointer(mintKey, ownerKey, mintKey),
		token.InitializeMint(mintKey, req.Decimals, ownerKey, ownerKey),
		tokenmetadata.NewInitializeInstruction(
			token.ProgramKey,
			&tokenmetadata.InitializeInstructionAccounts{
				Metadata:        mintKey,
				UpdateAuthority: ownerKey,
				Mint:            mintKey,
				MintAuthority:   ownerKey,
			},
			&tokenmetadata.InitializeInstructionArgs{
				Name:   metadata.Name,
				Symbol: metadata.Symbol,
				URI:    metadata.URI,
			},
		),
		createAssociatedAccount,
		token.MintTo(mintKey, associatedKey, ownerKey, amount),
	}

	log.WithFields(logrus.Fields{
		"owner":  owner.PublicKey().ToBase58(),
		"mint":   mint.PublicKey().ToBase58(),
		"amount": amount,
		"rent":   footprint.RentExemptLamports,
	}).Debug("composed token creation")

	return &TokenCreationPlan{
		Owner:             owner,
		Mint:              mint,
		AssociatedAccount: associatedAccount,
		Metadata:          metadata,
		Footprint:         footprint,
		Amount:            amount,
		Instructions:      instructions,
	}, nil
}

// validateTokenRequest checks the request and returns the supply in base
// units.
func (c *Composer) validateTokenRequest(owner *common.Account, req *TokenRequest) (uint64, error) {
	if owner == nil {
		return 0, common.NewValidationError("owner", "is required")
	}
	if req == nil {
		return 0, common.NewValidationError("request", "is required")
	}

	if len(strings.TrimSpace(req.Name)) == 0 {
		return 0, common.NewValidationError("name", "is required")
	}

	symbolLength := utf8.RuneCountInString(req.Symbol)
	if len(strings.TrimSpace(req.Symbol)) == 0 || symbolLength > c.maxSymbolLength {
		return 0, common.NewValidationError("symbol", "must be between 1 and %d characters", c.maxSymbolLength)
	}

	if req.Decimals > c.maxDecimals {
		return 0, common.NewValidationError("decimals", "must be between 0 and %d", c.maxDecimals)
	}

	if req.Supply == 0 {
		return 0, common.NewValidationError("supply", "must be greater than zero")
	}

	if len(req.Image) > 0 {
		if err := netutil.ValidateHTTPURL(req.Image, false); err != nil {
			return 0, common.NewValidationError("image", "%q is not a valid url: %v", req.Image, err)
		}
	}

	return common.ScaleSupply(req.Supply, req.Decimals)
}
