// Package sizing derives the on-chain footprint of a token mint before any
// instruction is built.
package sizing

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/ledger"
	"github.com/code-payments/launchpad-server/pkg/metrics"
	"github.com/code-payments/launchpad-server/pkg/solana/token"
)

const (
	metricsStructName = "launchpad.sizing"

	// MetadataOverhead is the TLV header (type tag and length prefix) that
	// precedes the packed token metadata in the mint account.
	MetadataOverhead = token.TypeSize + token.LengthSize
)

// SizingError indicates the footprint could not be derived. The underlying
// cause is available via errors.Unwrap.
type SizingError struct {
	Err error
}

func (e *SizingError) Error() string {
	return "failed to size mint account: " + e.Err.Error()
}

func (e *SizingError) Unwrap() error {
	return e.Err
}

// Footprint describes the space and funding a mint account requires.
type Footprint struct {
	// AccountSize is the space allocated when the account is created. It
	// covers the base mint and the fixed size extensions.
	AccountSize uint64

	// MetadataSize is the space the token metadata extension grows the
	// account by once initialized.
	MetadataSize uint64

	// TotalSize is the final account size, which the account is funded for.
	TotalSize uint64

	RentExemptLamports uint64
}

type Sizer struct {
	log    *logrus.Entry
	ledger ledger.Ledger
}

func NewSizer(ledger ledger.Ledger) *Sizer {
	return &Sizer{
		log:    logrus.StandardLogger().WithField("type", "launchpad/sizing"),
		ledger: ledger,
	}
}

// Size returns the footprint of a mint with the provided fixed size
// extensions and metadataLen bytes of packed token metadata. A metadataLen of
// zero means the mint carries no metadata.
func (s *Sizer) Size(ctx context.Context, extensions []token.ExtensionType, metadataLen int) (*Footprint, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Size")
	defer tracer.End()

	log := s.log.WithFields(logrus.Fields{
		"method":       "Size",
		"extensions":   len(extensions),
		"metadata_len": metadataLen,
	})

	footprint, err := s.size(ctx, extensions, metadataLen)
	if err != nil {
		log.WithError(err).Warn("failure sizing mint account")
		tracer.OnError(err)
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"total_size": footprint.TotalSize,
		"rent":       footprint.RentExemptLamports,
	}).Debug("sized mint account")
	return footprint, nil
}

func (s *Sizer) size(ctx context.Context, extensions []token.ExtensionType, metadataLen int) (*Footprint, error) {
	if metadataLen < 0 {
		return nil, &SizingError{Err: errors.Errorf("negative metadata length: %d", metadataLen)}
	}

	accountSize, err := token.GetMintLen(extensions)
	if err != nil {
		return nil, &SizingError{Err: err}
	}

	footprint := &Footprint{
		AccountSize: uint64(accountSize),
	}
	if metadataLen > 0 {
		footprint.MetadataSize = uint64(MetadataOverhead + metadataLen)
	}
	footprint.TotalSize = footprint.AccountSize + footprint.MetadataSize

	rent, err := s.ledger.GetRentExemptMinimum(ctx, footprint.TotalSize)
	if err != nil {
		return nil, &SizingError{Err: err}
	}
	footprint.RentExemptLamports = rent

	return footprint, nil
}
