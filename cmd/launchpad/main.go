package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/code-payments/launchpad-server/pkg/launchpad"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		reportError(app.ErrWriter, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "launchpad",
		Usage: "Create Token-2022 tokens and move SOL on a Solana cluster",
		Description: `Every transaction is assembled locally and signed by the configured keypair
after confirmation. Use --offline to run against an in-memory ledger.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			balanceCommand(),
			airdropCommand(),
			transferCommand(),
			createTokenCommand(),
			signMessageCommand(),
			verifyCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to an optional config file",
			},
			&cli.StringFlag{
				Name:  "cluster",
				Usage: "Cluster the RPC endpoint serves: devnet, testnet or mainnet-beta (overrides SOLANA_CLUSTER)",
			},
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "Solana RPC endpoint (overrides SOLANA_RPC_ENDPOINT)",
			},
			&cli.StringFlag{
				Name:  "keypair",
				Usage: "Path to a Solana CLI keypair file (overrides KEYPAIR_PATH)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (overrides LOG_LEVEL)",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Approve every signing request without prompting",
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Use an in-memory ledger seeded with test funds",
			},
		},
	}
}

// reportError prints err, along with its remediation when it's a classified
// workflow failure.
func reportError(w io.Writer, err error) {
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		fmt.Fprintln(w, exitErr.Error())
		return
	}

	var workflowErr *launchpad.WorkflowError
	if errors.As(err, &workflowErr) {
		fmt.Fprintf(w, "Error: %s\n", workflowErr.Classification.Remediation)
		fmt.Fprintf(w, "Details: %s\n", workflowErr.Classification.Diagnostic)
		if workflowErr.WorkflowID != "" {
			fmt.Fprintf(w, "Workflow: %s %s\n", workflowErr.Workflow, workflowErr.WorkflowID)
		}
		return
	}

	fmt.Fprintf(w, "Error: %v\n", err)
}
