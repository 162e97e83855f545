package ledger

import (
	"time"

	"github.com/code-payments/launchpad-server/pkg/config"
	"github.com/code-payments/launchpad-server/pkg/config/env"
	"github.com/code-payments/launchpad-server/pkg/config/memory"
)

const (
	envConfigPrefix = "LEDGER_"

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = 2 * time.Second
)

type conf struct {
	commitment   config.String
	pollInterval config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:   env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			pollInterval: env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
		}
	}
}

type testOverrides struct {
	pollInterval time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:   memory.NewStringConfig(defaultCommitment),
			pollInterval: memory.NewDurationConfig(overrides.pollInterval),
		}
	}
}
