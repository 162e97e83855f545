package compose

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/memo"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
)

// TransferPlan is a native currency transfer ready for assembly.
type TransferPlan struct {
	Source       *common.Account
	Destination  *common.Account
	Lamports     uint64
	Instructions []solana.Instruction
}

// ComposeTransfer builds a transfer of amount SOL, a decimal string, from
// source to the base58 encoded destination. A non-empty memo is attached as a
// second instruction signed by the source.
func (c *Composer) ComposeTransfer(source *common.Account, destination, amount, memoText string) (*TransferPlan, error) {
	if source == nil {
		return nil, common.NewValidationError("source", "is required")
	}

	dest, err := ParseAddress("destination", destination)
	if err != nil {
		return nil, err
	}

	lamports, err := common.ToBaseUnits("amount", amount, common.NativeDecimals)
	if err != nil {
		return nil, err
	}
	if lamports == 0 {
		return nil, common.NewValidationError("amount", "must be greater than zero")
	}

	instructions := []solana.Instruction{
		system.Transfer(source.PublicKey().ToBytes(), dest.PublicKey().ToBytes(), lamports),
	}

	if len(memoText) > 0 {
		memoInstruction, err := memo.Instruction(memoText, source.PublicKey().ToBytes())
		if err != nil {
			return nil, common.NewValidationError("memo", "%s", err.Error())
		}
		instructions = append(instructions, memoInstruction)
	}

	c.log.WithFields(logrus.Fields{
		"method":      "ComposeTransfer",
		"source":      source.PublicKey().ToBase58(),
		"destination": dest.PublicKey().ToBase58(),
		"lamports":    lamports,
	}).Debug("composed transfer")

	return &TransferPlan{
		Source:       source,
		Destination:  dest,
		Lamports:     lamports,
		Instructions: instructions,
	}, nil
}

// ParseAddress parses a base58 encoded 32 byte ledger address.
func ParseAddress(field, address string) (*common.Account, error) {
	if len(address) == 0 {
		return nil, common.NewValidationError(field, "address is required")
	}

	account, err := common.NewAccountFromPublicKeyString(address)
	if err != nil || !account.PublicKey().IsPublic() {
		return nil, common.NewValidationError(field, "%q is not a valid address", address)
	}
	return account, nil
}
