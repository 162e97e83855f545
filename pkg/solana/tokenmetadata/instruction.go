package tokenmetadata

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/binary"
)

// Interface instructions are identified by the first 8 bytes of
// sha256("spl_token_metadata_interface:<instruction>").
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token-metadata/interface/src/instruction.rs
var initializeDiscriminator = []byte{0xd2, 0xe1, 0x1e, 0xa2, 0x58, 0xb8, 0x4d, 0x8d}

type InitializeInstructionAccounts struct {
	// Metadata is the account the metadata is written into. For Token-2022
	// mints using the metadata pointer extension this is the mint itself.
	Metadata        ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
}

type InitializeInstructionArgs struct {
	Name   string
	Symbol string
	URI    string
}

// NewInitializeInstruction initializes the basic metadata fields. program is
// the program that owns the metadata account, which is the token program when
// metadata lives in the mint.
func NewInitializeInstruction(
	program ed25519.PublicKey,
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	data := binary.NewEncoder(len(initializeDiscriminator)+4*3+len(args.Name)+len(args.Symbol)+len(args.URI)).
		Raw(initializeDiscriminator).
		String(args.Name).
		String(args.Symbol).
		String(args.URI).
		Bytes()

	return solana.Instruction{
		Program: program,

		Data: data,

		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
		},
	}
}

func DecompileInitialize(m solana.Message, index int) (*InitializeInstructionAccounts, *InitializeInstructionArgs, error) {
	i, err := m.Decompile(index)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "instruction %d", index)
	}

	if len(i.Data) < len(initializeDiscriminator) || !bytes.Equal(i.Data[:len(initializeDiscriminator)], initializeDiscriminator) {
		return nil, nil, solana.ErrIncorrectInstruction
	}
	if len(i.Accounts) != 4 {
		return nil, nil, errors.Errorf("invalid number of accounts: %d (expected %d)", len(i.Accounts), 4)
	}

	d := binary.NewDecoder(i.Data[len(initializeDiscriminator):])
	args := &InitializeInstructionArgs{
		Name:   d.String(),
		Symbol: d.String(),
		URI:    d.String(),
	}
	if d.Err() != nil {
		return nil, nil, errors.Wrap(d.Err(), "invalid instruction data")
	}
	if d.Remaining() != 0 {
		return nil, nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	return &InitializeInstructionAccounts{
		Metadata:        i.Accounts[0].PublicKey,
		UpdateAuthority: i.Accounts[1].PublicKey,
		Mint:            i.Accounts[2].PublicKey,
		MintAuthority:   i.Accounts[3].PublicKey,
	}, args, nil
}
