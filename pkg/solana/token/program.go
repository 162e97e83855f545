package token

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/binary"
	"github.com/code-payments/launchpad-server/pkg/solana/system"
)

// ProgramKey is the Token-2022 program, which supports mint extensions such as
// the metadata pointer.
//
// Current key: TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb
var ProgramKey = solana.MustParsePublicKey("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

type Command byte

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/instruction.rs
const (
	CommandInitializeMint           Command = 0
	CommandMintTo                   Command = 7
	CommandMetadataPointerExtension Command = 39

	CommandUnknown = Command(math.MaxUint8)
)

// Program errors relevant to mint creation.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/error.rs
const (
	ErrorNotRentExempt      solana.CustomError = 0
	ErrorInsufficientFunds  solana.CustomError = 1
	ErrorInvalidMint        solana.CustomError = 2
	ErrorOwnerMismatch      solana.CustomError = 4
	ErrorAlreadyInUse       solana.CustomError = 6
	ErrorUninitializedState solana.CustomError = 9
	ErrorOverflow           solana.CustomError = 14
)

const (
	initializeMintDataSize = 1 + 1 + ed25519.PublicKeySize + 1 + ed25519.PublicKeySize
	mintToDataSize         = 1 + 8
)

func GetCommand(m solana.Message, index int) (Command, error) {
	i, err := m.Decompile(index)
	if err != nil {
		return CommandUnknown, errors.Wrapf(err, "instruction %d", index)
	}

	if !bytes.Equal(i.Program, ProgramKey) {
		return CommandUnknown, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(i.Data[0]), nil
}

// InitializeMint initializes a mint whose account has already been created
// and sized for its extensions. A nil freezeAuthority leaves the mint
// unfreezable.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/instruction.rs#L41
func InitializeMint(mint ed25519.PublicKey, decimals byte, mintAuthority, freezeAuthority ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	//   1. `[]` Rent sysvar
	data := binary.NewEncoder(initializeMintDataSize).
		Uint8(byte(CommandInitializeMint)).
		Uint8(decimals).
		Key(mintAuthority).
		OptionalKey(freezeAuthority).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

type DecompiledInitializeMint struct {
	Mint            ed25519.PublicKey
	Decimals        byte
	MintAuthority   ed25519.PublicKey
	FreezeAuthority ed25519.PublicKey
}

func DecompileInitializeMint(m solana.Message, index int) (*DecompiledInitializeMint, error) {
	i, err := decompile(m, index, CommandInitializeMint, initializeMintDataSize, 2)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(i.Accounts[1].PublicKey, system.RentSysVar) {
		return nil, errors.New("rent sysvar mismatch")
	}

	d := binary.NewDecoder(i.Data[1:])
	return &DecompiledInitializeMint{
		Mint:            i.Accounts[0].PublicKey,
		Decimals:        d.Uint8(),
		MintAuthority:   d.Key(),
		FreezeAuthority: d.OptionalKey(),
	}, d.Err()
}

// MintTo mints amount base units into destination.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/instruction.rs#L200
func MintTo(mint, destination, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to mint tokens to.
	//   2. `[signer]` The mint's minting authority.
	data := binary.NewEncoder(mintToDataSize).
		Uint8(byte(CommandMintTo)).
		Uint64(amount).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(destination, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

type DecompiledMintTo struct {
	Mint        ed25519.PublicKey
	Destination ed25519.PublicKey
	Authority   ed25519.PublicKey
	Amount      uint64
}

func DecompileMintTo(m solana.Message, index int) (*DecompiledMintTo, error) {
	i, err := decompile(m, index, CommandMintTo, mintToDataSize, 3)
	if err != nil {
		return nil, err
	}

	return &DecompiledMintTo{
		Mint:        i.Accounts[0].PublicKey,
		Destination: i.Accounts[1].PublicKey,
		Authority:   i.Accounts[2].PublicKey,
		Amount:      binary.NewDecoder(i.Data[1:]).Uint64(),
	}, nil
}

func decompile(m solana.Message, index int, command Command, dataSize, accounts int) (solana.Instruction, error) {
	i, err := m.Decompile(index)
	if err != nil {
		return i, errors.Wrapf(err, "instruction %d", index)
	}

	if !bytes.Equal(i.Program, ProgramKey) {
		return i, solana.ErrIncorrectProgram
	}
	if len(i.Data) == 0 || Command(i.Data[0]) != command {
		return i, solana.ErrIncorrectInstruction
	}
	if len(i.Data) != dataSize {
		return i, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	if len(i.Accounts) != accounts {
		return i, errors.Errorf("invalid number of accounts: %d (expected %d)", len(i.Accounts), accounts)
	}
	return i, nil
}
