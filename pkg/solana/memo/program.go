package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/launchpad-server/pkg/solana"
)

// ProgramKey is the SPL memo program (v2).
var ProgramKey = solana.MustParsePublicKey("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")

var ErrInvalidMemo = errors.New("memo must be valid utf-8")

// Instruction attaches a UTF-8 memo to the transaction. Every provided signer
// must sign the transaction for the memo to be accepted.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/processor.rs
func Instruction(data string, signers ...ed25519.PublicKey) (solana.Instruction, error) {
	if !utf8.ValidString(data) {
		return solana.Instruction{}, ErrInvalidMemo
	}

	accounts := make([]solana.AccountMeta, 0, len(signers))
	for _, signer := range signers {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(signer, true))
	}

	return solana.NewInstruction(ProgramKey, []byte(data), accounts...), nil
}

type DecompiledMemo struct {
	Data    []byte
	Signers []ed25519.PublicKey
}

func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	i, err := m.Decompile(index)
	if err != nil {
		return nil, errors.Wrapf(err, "instruction %d", index)
	}

	if !bytes.Equal(i.Program, ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	return &DecompiledMemo{Data: i.Data, Signers: i.Signers()}, nil
}
