package main

import (
	"context"
	"io"

	"github.com/urfave/cli/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/code-payments/launchpad-server/pkg/launchpad"
	"github.com/code-payments/launchpad-server/pkg/launchpad/compose"
)

var printer = message.NewPrinter(language.English)

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the SOL balance of an address, or of the configured wallet",
		ArgsUsage: "[address]",
		Action: func(c *cli.Context) error {
			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			return r.run(c, func(ctx context.Context) error {
				balance, err := r.service.GetBalance(ctx, c.Args().First())
				if err != nil {
					return err
				}

				printer.Fprintf(r.out, "Address:  %s\n", balance.Address)
				printer.Fprintf(r.out, "Balance:  %s SOL\n", balance.Display)
				printer.Fprintf(r.out, "Lamports: %v\n", number.Decimal(balance.Lamports))
				return nil
			})
		},
	}
}

func airdropCommand() *cli.Command {
	return &cli.Command{
		Name:      "airdrop",
		Usage:     "Request test SOL from the cluster faucet",
		ArgsUsage: "<amount>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("airdrop requires an amount in SOL", 2)
			}

			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			return r.run(c, func(ctx context.Context) error {
				airdrop, err := r.service.RequestAirdrop(ctx, c.Args().First())
				if err != nil {
					return err
				}

				printer.Fprintf(r.out, "Received %v lamports\n", number.Decimal(airdrop.Lamports))
				printer.Fprintf(r.out, "Signature: %s\n", airdrop.Signature.ToBase58())
				printer.Fprintf(r.out, "Explorer:  %s\n", airdrop.ExplorerURL)
				return nil
			})
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Send SOL from the configured wallet",
		ArgsUsage: "<destination> <amount>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "memo",
				Usage: "Optional memo recorded with the transfer",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("transfer requires a destination and an amount in SOL", 2)
			}

			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			return r.run(c, func(ctx context.Context) error {
				result, err := r.service.Transfer(ctx, c.Args().Get(0), c.Args().Get(1), c.String("memo"))
				if err != nil {
					return err
				}

				printer.Fprintf(r.out, "Sent %v lamports to %s\n", number.Decimal(result.Lamports), result.Destination)
				printer.Fprintf(r.out, "Signature: %s\n", result.Receipt.Signature.ToBase58())
				printer.Fprintf(r.out, "Explorer:  %s\n", result.ExplorerURL)
				return nil
			})
		},
	}
}

func createTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-token",
		Usage: "Create a Token-2022 mint with metadata and mint the supply to the configured wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Token name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "symbol",
				Usage:    "Token symbol",
				Required: true,
			},
			&cli.UintFlag{
				Name:  "decimals",
				Usage: "Number of decimal places",
				Value: 9,
			},
			&cli.Uint64Flag{
				Name:     "supply",
				Usage:    "Number of whole tokens to mint",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "URL of the token image, recorded as the metadata URI",
			},
		},
		Action: func(c *cli.Context) error {
			decimals := c.Uint("decimals")
			if decimals > 255 {
				return cli.Exit("decimals must fit in a byte", 2)
			}

			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			req := &compose.TokenRequest{
				Name:     c.String("name"),
				Symbol:   c.String("symbol"),
				Decimals: uint8(decimals),
				Supply:   c.Uint64("supply"),
				Image:    c.String("image"),
			}

			return r.run(c, func(ctx context.Context) error {
				created, err := r.service.CreateToken(ctx, req)
				if err != nil {
					return err
				}

				printCreatedToken(r.out, created)
				return nil
			})
		},
	}
}

func printCreatedToken(w io.Writer, t *launchpad.CreatedToken) {
	printer.Fprintf(w, "Created %s (%s)\n", t.Name, t.Symbol)
	printer.Fprintf(w, "Mint:      %s\n", t.Mint)
	printer.Fprintf(w, "Account:   %s\n", t.AssociatedAccount)
	printer.Fprintf(w, "Supply:    %v (%d decimals)\n", number.Decimal(t.Supply), t.Decimals)
	printer.Fprintf(w, "Signature: %s\n", t.Signature)
	printer.Fprintf(w, "Explorer:  %s\n", t.ExplorerURL)
}

func signMessageCommand() *cli.Command {
	return &cli.Command{
		Name:      "sign-message",
		Usage:     "Sign a message with the configured wallet and verify the signature",
		ArgsUsage: "<message>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("sign-message requires a message", 2)
			}

			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			return r.run(c, func(ctx context.Context) error {
				signed, err := r.service.SignAndVerifyMessage(ctx, c.Args().First())
				if err != nil {
					return err
				}

				printer.Fprintf(r.out, "Signer:    %s\n", signed.PublicKey)
				printer.Fprintf(r.out, "Signature: %s\n", signed.Signature)
				return nil
			})
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify a base58 signature over a message",
		ArgsUsage: "<address> <message> <signature>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.Exit("verify requires an address, a message and a signature", 2)
			}

			r, err := newRuntime(c)
			if err != nil {
				return err
			}

			return r.run(c, func(ctx context.Context) error {
				if err := r.service.VerifyMessage(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)); err != nil {
					return err
				}

				printer.Fprintln(r.out, "Signature is valid")
				return nil
			})
		},
	}
}
