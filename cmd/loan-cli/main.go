package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	envRPCURL   = "LOAN_RPC_URL"
	envRPCToken = "LOAN_RPC_TOKEN"
	envKeystore = "LOAN_KEYSTORE"

	defaultRPCURL = "http://127.0.0.1:8545"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "loan-cli",
		Usage: "interact with a loan escrow node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Usage:   "JSON-RPC endpoint of the node",
				Value:   defaultRPCURL,
				EnvVars: []string{envRPCURL},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token for mutating RPC calls",
				EnvVars: []string{envRPCToken},
			},
			&cli.StringFlag{
				Name:    "keystore",
				Usage:   "path to the signing keystore",
				EnvVars: []string{envKeystore},
			},
			&cli.Uint64Flag{
				Name:  "chain-id",
				Usage: "chain id to sign for; queried from the node when zero",
			},
			&cli.BoolFlag{
				Name:  "base-units",
				Usage: "treat native amounts as integer base units",
			},
		},
		Commands: []*cli.Command{
			cmdGenerateKey,
			cmdAddress,
			cmdBalance,
			cmdTransfer,
			cmdApprove,
			cmdMintCollateral,
			cmdMintUnits,
			cmdTransferCollateral,
			cmdTransferUnits,
			cmdCreateLoan,
			cmdBorrow,
			cmdLend,
			cmdLoan,
			cmdEvents,
		},
	}
}

func clientFor(cctx *cli.Context) *rpcClient {
	return newRPCClient(cctx.String("rpc"), cctx.String("token"))
}
