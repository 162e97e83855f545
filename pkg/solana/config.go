package solana

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// EnvironmentForCluster returns the public environment of a named cluster.
// "mainnet" is accepted as an alias for "mainnet-beta".
func EnvironmentForCluster(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "devnet":
		return EnvironmentDev, nil
	case "testnet":
		return EnvironmentTest, nil
	case "mainnet-beta", "mainnet":
		return EnvironmentProd, nil
	default:
		return "", errors.Errorf("unknown cluster %q (expected devnet, testnet or mainnet-beta)", name)
	}
}

// Cluster returns the cluster name used by explorers, or an empty string for
// custom endpoints.
func (e Environment) Cluster() string {
	switch e {
	case EnvironmentDev:
		return "devnet"
	case EnvironmentTest:
		return "testnet"
	case EnvironmentProd:
		return "mainnet-beta"
	default:
		return ""
	}
}

// ExplorerURL links to a transaction signature on the public explorer.
func (e Environment) ExplorerURL(sig Signature) string {
	return e.explorerURL("tx", sig.ToBase58())
}

// AddressExplorerURL links to an address on the public explorer.
func (e Environment) AddressExplorerURL(address string) string {
	return e.explorerURL("address", address)
}

func (e Environment) explorerURL(kind, value string) string {
	switch cluster := e.Cluster(); cluster {
	case "mainnet-beta":
		return fmt.Sprintf("https://explorer.solana.com/%s/%s", kind, value)
	case "":
		return fmt.Sprintf("https://explorer.solana.com/%s/%s?cluster=custom&customUrl=%s", kind, value, string(e))
	default:
		return fmt.Sprintf("https://explorer.solana.com/%s/%s?cluster=%s", kind, value, cluster)
	}
}
