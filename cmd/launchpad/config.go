package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/code-payments/launchpad-server/pkg/solana"
)

// processConfig is the configuration shared by every command. Values come
// from the environment and an optional config file; command line flags take
// precedence over both.
type processConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName            string `mapstructure:"app_name"`
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Cluster names the network RPCEndpoint serves. It's required to apply
	// mainnet restrictions to custom endpoints.
	Cluster     string `mapstructure:"solana_cluster"`
	RPCEndpoint string `mapstructure:"solana_rpc_endpoint"`
	KeypairPath string `mapstructure:"keypair_path"`
}

var defaultConfig = processConfig{
	LogLevel: "warn",
	AppName:  "launchpad",
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")
	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("solana_cluster", "SOLANA_CLUSTER")
	_ = viper.BindEnv("solana_rpc_endpoint", "SOLANA_RPC_ENDPOINT")
	_ = viper.BindEnv("keypair_path", "KEYPAIR_PATH")
}

// loadConfig reads the optional config file at path and unmarshals the result
// over the defaults.
func loadConfig(path string) (*processConfig, error) {
	v := viper.GetViper()

	if path != "" {
		// viper.ReadInConfig only returns ConfigFileNotFoundError when it
		// searches for the file itself, so an explicit path that doesn't exist
		// is reported as a regular error.
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	config.LogLevel = strings.ToLower(config.LogLevel)
	return &config, nil
}

// resolveEnvironment returns the environment and RPC endpoint to use. A named
// cluster determines the environment even when the endpoint is custom. Without
// one, a public cluster endpoint is recognized by its URL and anything else is
// a custom environment. With neither set, devnet is used.
func resolveEnvironment(config *processConfig) (solana.Environment, string, error) {
	endpoint := config.RPCEndpoint

	if config.Cluster == "" {
		if endpoint == "" {
			endpoint = string(solana.EnvironmentDev)
		}
		return solana.Environment(endpoint), endpoint, nil
	}

	environment, err := solana.EnvironmentForCluster(config.Cluster)
	if err != nil {
		return "", "", err
	}
	if endpoint == "" {
		endpoint = string(environment)
	}
	return environment, endpoint, nil
}
