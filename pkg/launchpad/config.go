package launchpad

import (
	"github.com/code-payments/launchpad-server/pkg/config"
	"github.com/code-payments/launchpad-server/pkg/config/env"
	"github.com/code-payments/launchpad-server/pkg/config/memory"
	"github.com/code-payments/launchpad-server/pkg/launchpad/common"
)

const (
	envConfigPrefix = "LAUNCHPAD_"

	MaxSymbolLengthConfigEnvName = envConfigPrefix + "MAX_SYMBOL_LENGTH"
	defaultMaxSymbolLength       = 10

	MaxDecimalsConfigEnvName = envConfigPrefix + "MAX_DECIMALS"
	defaultMaxDecimals       = common.MaxDecimals

	MaxAirdropLamportsConfigEnvName = envConfigPrefix + "MAX_AIRDROP_LAMPORTS"
	defaultMaxAirdropLamports       = 2 * common.LamportsPerSol

	AirdropEnabledConfigEnvName = envConfigPrefix + "AIRDROP_ENABLED"
	defaultAirdropEnabled       = true

	CreatedTokenHistoryConfigEnvName = envConfigPrefix + "CREATED_TOKEN_HISTORY"
	defaultCreatedTokenHistory       = 100
)

type conf struct {
	maxSymbolLength     config.Uint64
	maxDecimals         config.Uint64
	maxAirdropLamports  config.Uint64
	airdropEnabled      config.Bool
	createdTokenHistory config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxSymbolLength:     env.NewUint64Config(MaxSymbolLengthConfigEnvName, defaultMaxSymbolLength),
			maxDecimals:         env.NewUint64Config(MaxDecimalsConfigEnvName, defaultMaxDecimals),
			maxAirdropLamports:  env.NewUint64Config(MaxAirdropLamportsConfigEnvName, defaultMaxAirdropLamports),
			airdropEnabled:      env.NewBoolConfig(AirdropEnabledConfigEnvName, defaultAirdropEnabled),
			createdTokenHistory: env.NewUint64Config(CreatedTokenHistoryConfigEnvName, defaultCreatedTokenHistory),
		}
	}
}

type testOverrides struct {
	maxDecimals         uint64
	maxAirdropLamports  uint64
	airdropDisabled     bool
	createdTokenHistory uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		maxAirdropLamports := uint64(defaultMaxAirdropLamports)
		if overrides.maxAirdropLamports > 0 {
			maxAirdropLamports = overrides.maxAirdropLamports
		}

		maxDecimals := uint64(defaultMaxDecimals)
		if overrides.maxDecimals > 0 {
			maxDecimals = overrides.maxDecimals
		}

		createdTokenHistory := uint64(defaultCreatedTokenHistory)
		if overrides.createdTokenHistory > 0 {
			createdTokenHistory = overrides.createdTokenHistory
		}

		return &conf{
			maxSymbolLength:     memory.NewUint64Config(defaultMaxSymbolLength),
			maxDecimals:         memory.NewUint64Config(maxDecimals),
			maxAirdropLamports:  memory.NewUint64Config(maxAirdropLamports),
			airdropEnabled:      memory.NewBoolConfig(!overrides.airdropDisabled),
			createdTokenHistory: memory.NewUint64Config(createdTokenHistory),
		}
	}
}
