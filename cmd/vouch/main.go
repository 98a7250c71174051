package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Best effort; the CLI works off flags and plain env vars too.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vouch",
		Usage: "Solana wallet activity analysis CLI",
		Description: `A command-line tool for the wallet analysis service.

Use this CLI to run analyses, manage scheduled wallet refreshes, and
inspect database state.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Analysis pipelines over the HTTP API
			{
				Name:  "analyze",
				Usage: "Run wallet analyses",
				Subcommands: []*cli.Command{
					analyzeProgramsCommand(),
					analyzeVolumeCommand(),
				},
			},
			// Wallet registration over the HTTP API
			{
				Name:  "wallet",
				Usage: "Scheduled refresh registration commands",
				Subcommands: []*cli.Command{
					walletRegisterCommand(),
					walletUnregisterCommand(),
					walletGetCommand(),
					walletListCommand(),
					walletSnapshotsCommand(),
				},
			},
			// Direct database inspection
			{
				Name:  "db",
				Usage: "Database inspection commands",
				Subcommands: []*cli.Command{
					dbWalletsCommand(),
					dbSnapshotsCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
				},
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Analysis server URL",
				EnvVars: []string{"VOUCH_SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
