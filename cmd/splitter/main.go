package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const (
	configFlag   = "config"
	debugFlag    = "debug"
	rpcFlag      = "rpc"
	walletFlag   = "wallet"
	addressFlag  = "address"
	passwordFlag = "password"
	contractFlag = "contract"
	nefFlag      = "nef"
	manifestFlag = "manifest"
	ownerFlag    = "owner"
	feeFlag      = "fee"
	denomFlag    = "denom"
	accountFlag  = "account"
	fromFlag     = "from"
	toFlag       = "to"
	dbTypeFlag   = "db-type"
	dbPathFlag   = "db-path"
)

var rpcFlags = []cli.Flag{
	cli.StringFlag{Name: rpcFlag, Usage: "Network address of the Neo RPC server"},
	cli.StringFlag{Name: contractFlag, Usage: "Address of the Splitter contract"},
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := newApp(ctx).Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "splitter"
	app.Usage = "Fee-splitting custodial ledger tool"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: configFlag, Usage: "YAML file with default flag values"},
		cli.BoolFlag{Name: debugFlag, Usage: "Enable debug logging"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "deploy",
			Usage: "Deploy the Splitter contract",
			Flags: []cli.Flag{
				cli.StringFlag{Name: rpcFlag, Usage: "Network address of the Neo RPC server"},
				cli.StringFlag{Name: walletFlag, Usage: "Path to the NEP-6 wallet paying for deployment"},
				cli.StringFlag{Name: addressFlag, Usage: "Wallet account address, default account if empty"},
				cli.StringFlag{Name: passwordFlag, Usage: "Wallet account password"},
				cli.StringFlag{Name: nefFlag, Usage: "Path to the compiled contract", Value: "contracts/splitter/contract.nef"},
				cli.StringFlag{Name: manifestFlag, Usage: "Path to the contract manifest", Value: "contracts/splitter/manifest.json"},
				cli.StringFlag{Name: ownerFlag, Usage: "Owner address, wallet account if empty"},
				cli.Int64Flag{Name: feeFlag, Usage: "Flat fee charged from every deposit"},
				cli.StringFlag{Name: denomFlag, Usage: "Accepted NEP-17 token: 'gas', 'neo', address or LE hash", Value: "gas"},
			},
			Before: withConfig,
			Action: action(ctx, deployCmd),
		},
		{
			Name:  "query",
			Usage: "Print the Splitter contract state",
			Flags: append([]cli.Flag{
				cli.StringSliceFlag{Name: accountFlag, Usage: "Account address to print balance of, can be repeated"},
			}, rpcFlags...),
			Before: withConfig,
			Action: action(ctx, queryCmd),
		},
		{
			Name:  "audit",
			Usage: "Replay the Splitter contract history and compare it with the current state",
			Flags: append([]cli.Flag{
				cli.Uint64Flag{Name: fromFlag, Usage: "First replayed block, must not be after deployment"},
				cli.Uint64Flag{Name: toFlag, Usage: "Last replayed block, latest if zero"},
				cli.StringFlag{Name: dbTypeFlag, Usage: "Reference ledger store: inmemory, boltdb or leveldb", Value: "inmemory"},
				cli.StringFlag{Name: dbPathFlag, Usage: "Reference ledger store path for persistent stores"},
			}, rpcFlags...),
			Before: withConfig,
			Action: action(ctx, auditCmd),
		},
	}

	return app
}

// action wraps command handler, providing it with context and logger.
func action(ctx context.Context, f func(ctx context.Context, c *cli.Context, log *zap.Logger) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		log, err := newLogger(c.GlobalBool(debugFlag))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		defer func() { _ = log.Sync() }()

		return f(ctx, c, log)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
