package ledger

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana"
)

const (
	metricsStructName = "launchpad.ledger.rpc"
)

type rpcLedger struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client
}

// NewRPCLedger returns a Ledger backed by a Solana JSON RPC node.
func NewRPCLedger(client solana.Client, configProvider ConfigProvider) Ledger {
	return &rpcLedger{
		log:    logrus.StandardLogger().WithField("type", "launchpad/ledger/rpc"),
		conf:   configProvider(),
		client: client,
	}
}

func (l *rpcLedger) commitment(ctx context.Context) solana.Commitment {
	switch l.conf.commitment.Get(ctx) {
	case solana.CommitmentProcessed.Commitment:
		return solana.CommitmentProcessed
	case solana.CommitmentFinalized.Commitment:
		return solana.CommitmentFinalized
	default:
		return solana.CommitmentConfirmed
	}
}

// GetRentExemptMinimum implements Ledger.GetRentExemptMinimum
func (l *rpcLedger) GetRentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetRentExemptMinimum")
	defer tracer.End()

	lamports, err := l.client.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		tracer.OnError(err)
		return 0, err
	}
	return lamports, nil
}

// GetFreshnessBinding implements Ledger.GetFreshnessBinding
func (l *rpcLedger) GetFreshnessBinding(ctx context.Context) (*FreshnessBinding, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetFreshnessBinding")
	defer tracer.End()

	hash, lastValidBlockHeight, err := l.client.GetLatestBlockhash(ctx, l.commitment(ctx))
	if err != nil {
		tracer.OnError(err)
		return nil, err
	}

	return &FreshnessBinding{
		Blockhash:            hash,
		LastValidBlockHeight: lastValidBlockHeight,
	}, nil
}

// GetAccountBalance implements Ledger.GetAccountBalance
func (l *rpcLedger) GetAccountBalance(ctx context.Context, account ed25519.PublicKey) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetAccountBalance")
	defer tracer.End()

	balance, err := l.client.GetBalance(ctx, account, l.commitment(ctx))
	if errors.Is(err, solana.ErrNoBalance) {
		return 0, nil
	} else if err != nil {
		tracer.OnError(err)
		return 0, err
	}
	return balance, nil
}

// AwaitConfirmation implements Ledger.AwaitConfirmation
//
// The signature status is polled until it reaches the configured commitment.
// Expiry is only declared after a status check made once the block height was
// observed past lastValidBlockHeight, so a transaction that landed in the
// final valid block is still reported as confirmed.
func (l *rpcLedger) AwaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "AwaitConfirmation")
	defer tracer.End()

	log := l.log.WithFields(logrus.Fields{
		"method":                  "AwaitConfirmation",
		"signature":               sig.ToBase58(),
		"last_valid_block_height": lastValidBlockHeight,
	})

	commitment := l.commitment(ctx)
	pollInterval := l.conf.pollInterval.Get(ctx)

	var expired bool
	for {
		statuses, err := l.client.GetSignatureStatuses(ctx, []solana.Signature{sig})
		if err != nil {
			tracer.OnError(err)
			return errors.Wrap(err, "error getting signature status")
		}

		if status := statuses[0]; status != nil {
			if status.ErrorResult != nil {
				log.WithField("error_key", status.ErrorResult.ErrorKey()).Debug("transaction failed")
				return status.ErrorResult
			}
			if status.Reached(commitment) {
				log.Debug("transaction confirmed")
				return nil
			}
		}

		if expired {
			log.Debug("transaction expired")
			return ErrBlockHeightExceeded
		}

		height, err := l.client.GetBlockHeight(ctx, commitment)
		if err != nil {
			tracer.OnError(err)
			return errors.Wrap(err, "error getting block height")
		}
		if height > lastValidBlockHeight {
			// Check the status one final time before declaring expiry
			expired = true
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// RequestTestFunds implements Ledger.RequestTestFunds
func (l *rpcLedger) RequestTestFunds(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "RequestTestFunds")
	defer tracer.End()

	l.log.WithFields(logrus.Fields{
		"method":   "RequestTestFunds",
		"account":  base58.Encode(account),
		"lamports": lamports,
	}).Debug("requesting airdrop")

	sig, err := l.client.RequestAirdrop(ctx, account, lamports, l.commitment(ctx))
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}
	return sig, nil
}
