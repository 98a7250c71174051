package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/BadGenius22/vouch-protocol-sub001/client"
)

func walletRegisterCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Aliases:   []string{"add"},
		Usage:     "Register a wallet for scheduled metric refreshes",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Value: "mainnet",
				Usage: "Solana network (mainnet or devnet)",
			},
			&cli.Int64Flag{
				Name:    "refresh-interval",
				Aliases: []string{"i"},
				Usage:   "Refresh interval in seconds (server default if omitted)",
			},
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Value:   30,
				Usage:   "Trading-volume lookback window in days",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			wallet, err := newAPIClient(c).RegisterWallet(context.Background(), client.RegisterWalletParams{
				Address:                c.Args().Get(0),
				Network:                c.String("network"),
				RefreshIntervalSeconds: c.Int64("refresh-interval"),
				PeriodDays:             c.Int("days"),
			})
			if err != nil {
				return fmt.Errorf("failed to register wallet: %w", err)
			}

			fmt.Printf("wallet registered\n")
			fmt.Printf("  address:  %s\n", wallet.Address)
			fmt.Printf("  network:  %s\n", wallet.Network)
			fmt.Printf("  interval: %ds\n", wallet.RefreshIntervalSeconds)
			return nil
		},
	}
}

func walletUnregisterCommand() *cli.Command {
	return &cli.Command{
		Name:      "unregister",
		Aliases:   []string{"remove"},
		Usage:     "Stop refreshing a wallet and delete it",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Value: "mainnet",
				Usage: "Solana network (mainnet or devnet)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			if err := newAPIClient(c).UnregisterWallet(context.Background(), address, c.String("network")); err != nil {
				return fmt.Errorf("failed to unregister wallet: %w", err)
			}

			fmt.Printf("wallet %s unregistered\n", address)
			return nil
		},
	}
}

func walletGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a registered wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Value: "mainnet",
				Usage: "Solana network (mainnet or devnet)",
			},
			&cli.StringFlag{
				Name:    "jq",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the result",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			wallet, err := newAPIClient(c).GetWallet(context.Background(), c.Args().Get(0), c.String("network"))
			if err != nil {
				return fmt.Errorf("failed to get wallet: %w", err)
			}
			return printResult(wallet, c.String("jq"))
		},
	}
}

func walletListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List registered wallets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (active or paused)",
			},
			&cli.StringFlag{
				Name:    "jq",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the result",
			},
		},
		Action: func(c *cli.Context) error {
			wallets, err := newAPIClient(c).ListWallets(context.Background(), c.String("status"))
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}
			return printResult(wallets, c.String("jq"))
		},
	}
}

func walletSnapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshots",
		Usage:     "List stored metric snapshots for a wallet, newest first",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "network",
				Value: "mainnet",
				Usage: "Solana network (mainnet or devnet)",
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Snapshot kind (programs or volume, empty for both)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Maximum number of snapshots to return",
			},
			&cli.StringFlag{
				Name:    "jq",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the result",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			snapshots, err := newAPIClient(c).ListSnapshots(
				context.Background(),
				c.Args().Get(0),
				c.String("network"),
				c.String("kind"),
				c.Int("limit"),
			)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			return printResult(snapshots, c.String("jq"))
		},
	}
}
