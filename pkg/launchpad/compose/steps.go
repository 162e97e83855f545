package compose

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
	"github.com/code-payments/launchpad-server/pkg/solana/tokenmetadata"
)

var ErrInvalidOrder = errors.New("invalid instruction order")

type Step uint8

const (
	StepUnknown Step = iota
	StepCreateAccount
	StepInitializeMetadataPointer
	StepInitializeMint
	StepInitializeMetadata
	StepCreateAssociatedAccount
	StepMintTo
)

// TokenCreationOrder is the only order in which a mint with embedded metadata
// can be created. The metadata pointer must exist before the mint is
// initialized, and the metadata requires an initialized mint.
var TokenCreationOrder = []Step{
	StepCreateAccount,
	StepInitializeMetadataPointer,
	StepInitializeMint,
	StepInitializeMetadata,
	StepCreateAssociatedAccount,
	StepMintTo,
}

func (s Step) String() string {
	switch s {
	case StepCreateAccount:
		return "create_account"
	case StepInitializeMetadataPointer:
		return "initialize_metadata_pointer"
	case StepInitializeMint:
		return "initialize_mint"
	case StepInitializeMetadata:
		return "initialize_metadata"
	case StepCreateAssociatedAccount:
		return "create_associated_account"
	case StepMintTo:
		return "mint_to"
	default:
		return "unknown"
	}
}

// VerifyTokenCreationOrder checks that instructions are exactly the token
// creation steps, in order.
func VerifyTokenCreationOrder(instructions []solana.Instruction) error {
	steps, err := identifySteps(instructions)
	if err != nil {
		return errors.Wrap(ErrInvalidOrder, err.Error())
	}

	if len(steps) != len(TokenCreationOrder) {
		return errors.Wrapf(ErrInvalidOrder, "expected %d instructions, got %d", len(TokenCreationOrder), len(steps))
	}

	for i, step := range steps {
		if step != TokenCreationOrder[i] {
			return errors.Wrapf(ErrInvalidOrder, "instruction %d is %s, expected %s", i, step, TokenCreationOrder[i])
		}
	}
	return nil
}

func identifySteps(instructions []solana.Instruction) ([]Step, error) {
	if len(instructions) == 0 {
		return nil, nil
	}

	var payer ed25519.PublicKey
	for _, instruction := range instructions {
		if signers := instruction.Signers(); len(signers) > 0 {
			payer = signers[0]
			break
		}
	}
	if payer == nil {
		return nil, errors.New("no signer in any instruction")
	}

	m := solana.NewTransaction(payer, instructions...).Message

	steps := make([]Step, len(instructions))
	for i := range instructions {
		steps[i] = identifyStep(m, i)
	}
	return steps, nil
}

func identifyStep(m solana.Message, index int) Step {
	if _, err := system.DecompileCreateAccount(m, index); err == nil {
		return StepCreateAccount
	}
	if _, err := token.DecompileInitializeMetadataPointer(m, index); err == nil {
		return StepInitializeMetadataPointer
	}
	if _, err := token.DecompileInitializeMint(m, index); err == nil {
		return StepInitializeMint
	}
	if _, _, err := tokenmetadata.DecompileInitialize(m, index); err == nil {
		return StepInitializeMetadata
	}
	if _, err := token.DecompileCreateAssociatedAccount(m, index); err == nil {
		return StepCreateAssociatedAccount
	}
	if _, err := token.DecompileMintTo(m, index); err == nil {
		return StepMintTo
	}
	return StepUnknown
}
