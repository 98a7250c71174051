package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/BadGenius22/vouch-protocol-sub001/client"
)

func newAPIClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

func analyzeProgramsCommand() *cli.Command {
	return &cli.Command{
		Name:      "programs",
		Usage:     "List programs deployed by a wallet, with estimated TVL",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "jq",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the result (e.g. '.programs[].address')",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			result, err := newAPIClient(c).DeployedPrograms(context.Background(), c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			if result.Partial {
				fmt.Fprintln(os.Stderr, "warning: result is partial, some transaction batches could not be fetched")
			}

			return printResult(result, c.String("jq"))
		},
	}
}

func analyzeVolumeCommand() *cli.Command {
	return &cli.Command{
		Name:      "volume",
		Usage:     "Compute trading volume for a wallet over a lookback window",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "days",
				Aliases: []string{"d"},
				Value:   30,
				Usage:   "Lookback window in days (1-365)",
			},
			&cli.StringFlag{
				Name:    "jq",
				Aliases: []string{"q"},
				Usage:   "jq expression applied to the result (e.g. '.total_volume')",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			result, err := newAPIClient(c).TradingVolume(context.Background(), c.Args().Get(0), c.Int("days"))
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			if result.Partial {
				fmt.Fprintln(os.Stderr, "warning: result is partial, some transaction batches could not be fetched")
			}

			return printResult(result, c.String("jq"))
		},
	}
}

// printResult prints v as indented JSON, optionally filtered through a
// jq expression first.
func printResult(v any, jqExpr string) error {
	if jqExpr == "" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return fmt.Errorf("failed to parse jq expression %q: %w", jqExpr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq expression %q: %w", jqExpr, err)
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}

	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			return fmt.Errorf("jq evaluation failed: %w", err)
		}
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal jq output: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}
