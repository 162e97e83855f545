// Package compose turns launchpad requests into ordered instruction sequences
// that execute atomically within a single transaction.
package compose

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
	"github.com/code-payments/launchpad-server/pkg/launchpad/sizing"
)

const (
	metricsStructName = "launchpad.compose"

	DefaultMaxSymbolLength = 10
	DefaultMaxDecimals     = common.MaxDecimals
)

type Composer struct {
	log   *logrus.Entry
	sizer *sizing.Sizer

	maxSymbolLength int
	maxDecimals     uint8
}

type Option func(*Composer)

// WithMaxSymbolLength overrides the longest accepted token symbol.
func WithMaxSymbolLength(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxSymbolLength = n
		}
	}
}

// WithMaxDecimals overrides the largest accepted number of mint decimals. It
// can never exceed what the supply scaling supports.
func WithMaxDecimals(n uint8) Option {
	return func(c *Composer) {
		if n <= common.MaxDecimals {
			c.maxDecimals = n
		}
	}
}

func NewComposer(sizer *sizing.Sizer, opts ...Option) *Composer {
	c := &Composer{
		log:             logrus.StandardLogger().WithField("type", "launchpad/compose"),
		sizer:           sizer,
		maxSymbolLength: DefaultMaxSymbolLength,
		maxDecimals:     DefaultMaxDecimals,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
