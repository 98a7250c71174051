package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/BadGenius22/vouch-protocol-sub001/service/db"
)

// openStore connects to the database named by the global flag. Callers
// must close the returned pool.
func openStore(c *cli.Context) (*db.Store, *pgxpool.Pool, error) {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (flag or DATABASE_URL)")
	}

	pool, err := pgxpool.New(c.Context, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(c.Context); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db.NewStore(pool, nil), pool, nil
}

func dbWalletsCommand() *cli.Command {
	return &cli.Command{
		Name:  "wallets",
		Usage: "List wallet rows straight from the database",
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
			store, pool, err := openStore(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			wallets, err := store.ListWallets(context.Background(), c.String("status"))
			if err != nil {
				return fmt.Errorf("failed to list wallets: %w", err)
			}
			return printResult(wallets, c.String("jq"))
		},
	}
}

func dbSnapshotsCommand() *cli.Command {
	return &cli.Command{
		Name:      "snapshots",
		Usage:     "List metric snapshot rows straight from the database",
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

			store, pool, err := openStore(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			snapshots, err := store.ListSnapshots(
				context.Background(),
				c.Args().Get(0),
				c.String("network"),
				c.String("kind"),
				int32(c.Int("limit")),
			)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			return printResult(snapshots, c.String("jq"))
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the server health endpoint",
		Action: func(c *cli.Context) error {
			if err := newAPIClient(c).Health(context.Background()); err != nil {
				return fmt.Errorf("server unhealthy: %w", err)
			}
			fmt.Println("server is healthy")
			return nil
		},
	}
}
