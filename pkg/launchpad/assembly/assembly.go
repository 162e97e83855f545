// Package assembly binds composed instructions to a freshness window and
// attaches the locally held signatures.
package assembly

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	metricsStructName = "launchpad.assembly"

	// MaxTransactionSize is the largest serialized transaction the ledger
	// accepts (the IPv6 MTU minus headers).
	MaxTransactionSize = 1232
)

var (
	ErrNoInstructions      = errors.New("no instructions to assemble")
	ErrUnknownSigner       = errors.New("instruction requires an unknown signer")
	ErrTransactionTooLarge = errors.New("transaction too large")
	ErrSignerMismatch      = errors.New("external signer is not the fee payer")
)

// Envelope is an assembled transaction awaiting the external signer's
// signature. Every other signature slot is filled.
type Envelope struct {
	Transaction    solana.Transaction
	Binding        *ledger.FreshnessBinding
	ExternalSigner ed25519.PublicKey
}

// Signature is the identifier the transaction will be known by once the
// external signer signs it.
func (e *Envelope) Signature() solana.Signature {
	if len(e.Transaction.Signatures) == 0 {
		return solana.Signature{}
	}
	return e.Transaction.Signatures[0]
}

// Validate checks the envelope is structurally complete: the external signer
// pays the fee and every other required signature is present and valid.
func (e *Envelope) Validate() error {
	if e.Binding == nil {
		return errors.New("envelope is not bound to a blockhash")
	}
	if e.Transaction.Message.RecentBlockhash != e.Binding.Blockhash {
		return errors.New("envelope blockhash doesn't match its binding")
	}
	if len(e.Transaction.Message.Instructions) == 0 {
		return ErrNoInstructions
	}
	if !bytes.Equal(e.Transaction.Payer(), e.ExternalSigner) {
		return ErrSignerMismatch
	}
	if size := len(e.Transaction.Marshal()); size > MaxTransactionSize {
		return errors.Wrapf(ErrTransactionTooLarge, "%d bytes (max %d)", size, MaxTransactionSize)
	}
	return e.Transaction.VerifySignatures(e.ExternalSigner)
}

type Assembler struct {
	log    *logrus.Entry
	ledger ledger.Ledger
}

func NewAssembler(ledger ledger.Ledger) *Assembler {
	return &Assembler{
		log:    logrus.StandardLogger().WithField("type", "launchpad/assembly"),
		ledger: ledger,
	}
}

// Assemble builds a transaction paid for by feePayer, binds it to a freshly
// fetched blockhash and signs it with every ephemeral key. The fee payer's
// slot is left open for the external signer. Every signer an instruction
// requires must be the fee payer or one of the ephemeral keys.
func (a *Assembler) Assemble(ctx context.Context, feePayer ed25519.PublicKey, instructions []solana.Instruction, ephemeral ...ed25519.PrivateKey) (envelope *Envelope, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Assemble")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	log := a.log.WithFields(logrus.Fields{
		"method":       "Assemble",
		"fee_payer":    base58.Encode(feePayer),
		"instructions": len(instructions),
	})

	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	if len(feePayer) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid fee payer length: %d", len(feePayer))
	}

	known := []ed25519.PublicKey{feePayer}
	for _, key := range ephemeral {
		known = append(known, key.Public().(ed25519.PublicKey))
	}
	for i, instruction := range instructions {
		for _, signer := range instruction.Signers() {
			if !contains(known, signer) {
				return nil, errors.Wrapf(ErrUnknownSigner, "instruction %d requires %s", i, base58.Encode(signer))
			}
		}
	}

	txn := solana.NewTransaction(feePayer, instructions...)
	if size := len(txn.Marshal()); size > MaxTransactionSize {
		return nil, errors.Wrapf(ErrTransactionTooLarge, "%d bytes (max %d)", size, MaxTransactionSize)
	}

	binding, err := a.ledger.GetFreshnessBinding(ctx)
	if err != nil {
		log.WithError(err).Warn("failure getting freshness binding")
		return nil, errors.Wrap(err, "error getting freshness binding")
	}
	txn.SetBlockhash(binding.Blockhash)

	if len(ephemeral) > 0 {
		if err := txn.Sign(ephemeral...); err != nil {
			return nil, errors.Wrap(err, "error signing with ephemeral keys")
		}
	}

	envelope = &Envelope{
		Transaction:    txn,
		Binding:        binding,
		ExternalSigner: feePayer,
	}
	if err := envelope.Validate(); err != nil {
		return nil, errors.Wrap(err, "assembled envelope is incomplete")
	}

	log.WithFields(logrus.Fields{
		"blockhash":               binding.Blockhash.ToBase58(),
		"last_valid_block_height": binding.LastValidBlockHeight,
	}).Debug("assembled transaction")

	return envelope, nil
}

func contains(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
