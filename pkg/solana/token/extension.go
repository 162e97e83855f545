package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
	"github.com/code-payments/launchpad-server/pkg/solana/binary"
)

// Layout constants for Token-2022 accounts.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/js/src/extensions/extensionType.ts
const (
	MintSize        = 82
	AccountSize     = 165
	MultisigSize    = 355
	AccountTypeSize = 1
	TypeSize        = 2
	LengthSize      = 2
)

// ExtensionType identifies a Token-2022 extension in the account's TLV data.
type ExtensionType uint16

const (
	ExtensionTransferFeeConfig     ExtensionType = 1
	ExtensionMintCloseAuthority    ExtensionType = 3
	ExtensionDefaultAccountState   ExtensionType = 6
	ExtensionNonTransferable       ExtensionType = 9
	ExtensionInterestBearingConfig ExtensionType = 10
	ExtensionPermanentDelegate     ExtensionType = 12
	ExtensionTransferHook          ExtensionType = 14
	ExtensionMetadataPointer       ExtensionType = 18
	ExtensionTokenMetadata         ExtensionType = 19
	ExtensionGroupPointer          ExtensionType = 20
	ExtensionGroupMemberPointer    ExtensionType = 22
)

var ErrUnsupportedExtension = errors.New("unsupported extension")

// fixed data lengths of the mint extensions that can be sized up front
var extensionSizes = map[ExtensionType]int{
	ExtensionTransferFeeConfig:     108,
	ExtensionMintCloseAuthority:    32,
	ExtensionDefaultAccountState:   1,
	ExtensionNonTransferable:       0,
	ExtensionInterestBearingConfig: 52,
	ExtensionPermanentDelegate:     32,
	ExtensionTransferHook:          64,
	ExtensionMetadataPointer:       64,
	ExtensionGroupPointer:          64,
	ExtensionGroupMemberPointer:    64,
}

// ExtensionSize returns the TLV data length of a fixed size mint extension.
func ExtensionSize(e ExtensionType) (int, error) {
	size, ok := extensionSizes[e]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedExtension, "type %d", e)
	}
	return size, nil
}

// GetMintLen returns the account size of a mint carrying the provided
// extensions. Variable length extensions such as the token metadata itself
// are not included and must be funded separately.
func GetMintLen(extensions []ExtensionType) (int, error) {
	if len(extensions) == 0 {
		return MintSize, nil
	}

	length := AccountSize + AccountTypeSize
	for _, e := range extensions {
		size, err := ExtensionSize(e)
		if err != nil {
			return 0, err
		}
		length += TypeSize + LengthSize + size
	}

	// A mint must never be mistaken for a multisig account by size alone.
	if length == MultisigSize {
		return length + TypeSize, nil
	}
	return length, nil
}

const (
	metadataPointerInitialize     byte = 0
	initializeMetadataPointerSize      = 1 + 1 + 2*ed25519.PublicKeySize
)

// InitializeMetadataPointer records where the mint's metadata lives. It must
// precede InitializeMint.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/token/program-2022/src/extension/metadata_pointer/instruction.rs
func InitializeMetadataPointer(mint, authority, metadataAddress ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	data := binary.NewEncoder(initializeMetadataPointerSize).
		Uint8(byte(CommandMetadataPointerExtension)).
		Uint8(metadataPointerInitialize).
		Key(authority).
		Key(metadataAddress).
		Bytes()

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(mint, false),
	)
}

type DecompiledInitializeMetadataPointer struct {
	Mint            ed25519.PublicKey
	Authority       ed25519.PublicKey
	MetadataAddress ed25519.PublicKey
}

func DecompileInitializeMetadataPointer(m solana.Message, index int) (*DecompiledInitializeMetadataPointer, error) {
	i, err := decompile(m, index, CommandMetadataPointerExtension, initializeMetadataPointerSize, 1)
	if err != nil {
		return nil, err
	}

	d := binary.NewDecoder(i.Data[1:])
	if d.Uint8() != metadataPointerInitialize {
		return nil, solana.ErrIncorrectInstruction
	}

	v := &DecompiledInitializeMetadataPointer{
		Mint:            i.Accounts[0].PublicKey,
		Authority:       d.Key(),
		MetadataAddress: d.Key(),
	}
	if bytes.Equal(v.Authority, make([]byte, ed25519.PublicKeySize)) {
		v.Authority = nil
	}
	return v, d.Err()
}
