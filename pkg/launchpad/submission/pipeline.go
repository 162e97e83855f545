// Package submission drives an assembled transaction through external
// signing, submission and confirmation.
package submission

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/assembly"
	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/launchpad/wallet"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	metricsStructName = "launchpad.submission"
)

// ErrExpired indicates the transaction wasn't confirmed before the ledger
// passed the envelope's last valid block height. The envelope must be rebuilt
// against a new freshness binding, never resubmitted.
var ErrExpired = errors.New("transaction expired before confirmation")

// Receipt is the outcome of a confirmed workflow.
type Receipt struct {
	WorkflowID  string
	Signature   solana.Signature
	Binding     ledger.FreshnessBinding
	ConfirmedAt time.Time
}

type Pipeline struct {
	log    *logrus.Entry
	signer wallet.Signer
	ledger ledger.Ledger
}

func NewPipeline(signer wallet.Signer, ledger ledger.Ledger) *Pipeline {
	return &Pipeline{
		log:    logrus.StandardLogger().WithField("type", "launchpad/submission"),
		signer: signer,
		ledger: ledger,
	}
}

// Submit validates the envelope, hands it to the external signer for signing
// and broadcast, then waits for confirmation within the envelope's freshness
// window. No step is retried.
func (p *Pipeline) Submit(ctx context.Context, workflow *Workflow, envelope *assembly.Envelope) (receipt *Receipt, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	tracer.AddAttribute("workflow", workflow.ID.String())
	tracer.AddAttribute("kind", workflow.Kind)
	defer func() {
		tracer.OnError(err)
		tracer.End()
	}()

	log := p.log.WithFields(logrus.Fields{
		"method":   "Submit",
		"workflow": workflow.ID.String(),
		"kind":     workflow.Kind,
	})

	if state := workflow.State(); state != StateBuilding {
		if state.IsTerminal() {
			return nil, errors.Wrapf(ErrWorkflowFinished, "workflow is %s", state)
		}
		return nil, errors.Wrapf(ErrInvalidTransition, "cannot submit a workflow that is %s", state)
	}

	if err := p.validate(envelope); err != nil {
		log.WithError(err).Warn("envelope failed validation")
		return nil, p.fail(workflow, StateFailed, err)
	}

	if err := workflow.Transition(StateAwaitingSignature, nil); err != nil {
		return nil, err
	}

	txn := envelope.Transaction
	sig, err := p.signer.CoSignAndBroadcast(ctx, &txn)
	if sig != (solana.Signature{}) {
		workflow.setSignature(sig)
		log = log.WithField("signature", sig.ToBase58())
	}
	if errors.Is(err, wallet.ErrSigningDeclined) {
		log.Info("signing declined")
		return nil, p.fail(workflow, StateRejected, err)
	} else if err != nil {
		log.WithError(err).Info("transaction submission failed")
		return nil, p.fail(workflow, StateFailed, err)
	}

	if err := workflow.Transition(StateSubmitted, nil); err != nil {
		return nil, err
	}

	err = p.ledger.AwaitConfirmation(ctx, sig, envelope.Binding.LastValidBlockHeight)
	if errors.Is(err, ledger.ErrBlockHeightExceeded) {
		expired := errors.Wrapf(ErrExpired, "last valid block height %d", envelope.Binding.LastValidBlockHeight)
		log.Info("transaction expired")
		return nil, p.fail(workflow, StateExpired, expired)
	} else if err != nil {
		log.WithError(err).Info("transaction failed")
		return nil, p.fail(workflow, StateFailed, err)
	}

	if err := workflow.Transition(StateConfirmed, nil); err != nil {
		return nil, err
	}

	log.Debug("transaction confirmed")
	return &Receipt{
		WorkflowID:  workflow.ID.String(),
		Signature:   sig,
		Binding:     *envelope.Binding,
		ConfirmedAt: time.Now(),
	}, nil
}

// validate ensures the envelope is complete apart from the external signer's
// signature, and that the connected wallet is the one expected to provide it.
func (p *Pipeline) validate(envelope *assembly.Envelope) error {
	if envelope == nil {
		return errors.New("envelope is required")
	}

	identity, ok := p.signer.Identity()
	if !ok {
		return wallet.ErrNotConnected
	}
	if !identity.Equal(envelope.ExternalSigner) {
		return wallet.ErrNotFeePayer
	}

	return envelope.Validate()
}

func (p *Pipeline) fail(workflow *Workflow, to State, cause error) error {
	if err := workflow.Transition(to, cause); err != nil {
		p.log.WithError(err).Warn("failure recording workflow transition")
	}
	return cause
}
