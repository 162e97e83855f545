package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	metricsStructName = "launchpad.wallet.local"
)

type localSigner struct {
	log        *logrus.Entry
	key        ed25519.PrivateKey
	submitter  Submitter
	approver   Approver
	commitment solana.Commitment
}

type Option func(*localSigner)

// WithCommitment sets the commitment used for preflight on submission.
func WithCommitment(commitment solana.Commitment) Option {
	return func(s *localSigner) {
		s.commitment = commitment
	}
}

// NewLocalSigner returns a Signer backed by a keypair held in process. Every
// signature is subject to the approver.
func NewLocalSigner(key ed25519.PrivateKey, submitter Submitter, approver Approver, opts ...Option) Signer {
	s := &localSigner{
		log:        logrus.StandardLogger().WithField("type", "launchpad/wallet/local"),
		key:        key,
		submitter:  submitter,
		approver:   approver,
		commitment: solana.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity implements Signer.Identity
func (s *localSigner) Identity() (ed25519.PublicKey, bool) {
	if len(s.key) != ed25519.PrivateKeySize {
		return nil, false
	}
	return s.key.Public().(ed25519.PublicKey), true
}

// CoSignAndBroadcast implements Signer.CoSignAndBroadcast
func (s *localSigner) CoSignAndBroadcast(ctx context.Context, txn *solana.Transaction) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CoSignAndBroadcast")
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	identity, ok := s.Identity()
	if !ok {
		return solana.Signature{}, ErrNotConnected
	}

	log := s.log.WithFields(logrus.Fields{
		"method":   "CoSignAndBroadcast",
		"identity": base58.Encode(identity),
	})

	if !bytes.Equal(txn.Payer(), identity) {
		return solana.Signature{}, ErrNotFeePayer
	}

	approved, err := s.approver.Approve(ctx, &ApprovalRequest{
		Kind:    "transaction",
		Summary: txn.String(),
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error requesting approval")
	}
	if !approved {
		log.Info("transaction signing declined")
		return solana.Signature{}, ErrSigningDeclined
	}

	if err := txn.Sign(s.key); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}
	if err := txn.VerifySignatures(); err != nil {
		return solana.Signature{}, errors.Wrap(err, "transaction is not fully signed")
	}

	sig = txn.Signatures[0]
	log = log.WithField("signature", sig.ToBase58())

	if _, err := s.submitter.SubmitTransaction(ctx, *txn, s.commitment); err != nil {
		log.WithError(err).Info("transaction submission failed")
		return sig, err
	}

	log.Debug("transaction submitted")
	return sig, nil
}

// SignMessage implements Signer.SignMessage
func (s *localSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if _, ok := s.Identity(); !ok {
		return nil, ErrNotConnected
	}

	approved, err := s.approver.Approve(ctx, &ApprovalRequest{
		Kind:    "message",
		Summary: string(message),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error requesting approval")
	}
	if !approved {
		return nil, ErrSigningDeclined
	}

	return ed25519.Sign(s.key, message), nil
}
