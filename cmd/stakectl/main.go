package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var app = &cli.App{
	Name:  "stakectl",
	Usage: "inspect and manage tiered token stakes from the terminal",
	Flags: []cli.Flag{
		configFlag,
		verboseFlag,
	},
	Commands: []*cli.Command{
		commandStatus,
		commandStake,
		commandClaim,
		commandUnstake,
		commandApproveFund,
		commandFund,
	},
}

// Commonly used command line flags.
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML configuration file",
		EnvVars: []string{"CONFIG_FILE"},
	}
	verboseFlag = &cli.BoolFlag{
		Name:  "verbose",
		Usage: "log RPC activity to stderr",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "output JSON instead of human-readable format",
	}
	tierFlag = &cli.IntFlag{
		Name:     "tier",
		Usage:    "tier id: 1 (3 months), 2 (6 months) or 3 (12 months)",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "amount in whole tokens, up to 18 decimals",
		Required: true,
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		errColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), 1)
}
