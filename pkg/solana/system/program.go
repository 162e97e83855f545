package system

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/binary"
)

// ProgramKey is the system program, which is also the owner of every wallet
// account.
//
// https://explorer.solana.com/address/11111111111111111111111111111111
var ProgramKey = solana.MustParsePublicKey("11111111111111111111111111111111")

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
const (
	commandCreateAccount uint32 = 0
	commandTransfer      uint32 = 2
)

const (
	createAccountDataSize = 4 + 8 + 8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// CreateAccount funds and allocates a new account owned by owner.
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	data := binary.NewEncoder(createAccountDataSize).
		Uint32(commandCreateAccount).
		Uint64(lamports).
		Uint64(size).
		Key(owner).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	i, err := decompile(m, index, commandCreateAccount)
	if err != nil {
		return nil, err
	}

	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != createAccountDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	d := binary.NewDecoder(i.Data[4:])
	return &DecompiledCreateAccount{
		Funder:   i.Accounts[0].PublicKey,
		Address:  i.Accounts[1].PublicKey,
		Lamports: d.Uint64(),
		Size:     d.Uint64(),
		Owner:    d.Key(),
	}, d.Err()
}

// Transfer moves lamports between two system-owned accounts.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L90-L94
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := binary.NewEncoder(transferDataSize).
		Uint32(commandTransfer).
		Uint64(lamports).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	i, err := decompile(m, index, commandTransfer)
	if err != nil {
		return nil, err
	}

	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != transferDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	return &DecompiledTransfer{
		From:     i.Accounts[0].PublicKey,
		To:       i.Accounts[1].PublicKey,
		Lamports: binary.NewDecoder(i.Data[4:]).Uint64(),
	}, nil
}

func decompile(m solana.Message, index int, command uint32) (solana.Instruction, error) {
	i, err := m.Decompile(index)
	if err != nil {
		return i, errors.Wrapf(err, "instruction %d", index)
	}

	if !bytes.Equal(i.Program, ProgramKey) {
		return i, solana.ErrIncorrectProgram
	}
	if !bytes.HasPrefix(i.Data, binary.NewEncoder(4).Uint32(command).Bytes()) {
		return i, solana.ErrIncorrectInstruction
	}
	return i, nil
}
