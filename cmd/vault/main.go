package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newApp(ctx).Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "vault"
	app.Usage = "Manage per-mint token vaults on Neo N3 blockchain"
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "Path to YAML configuration file"},
		cli.StringFlag{Name: "rpc-endpoint, r", Usage: "Neo RPC server address"},
		cli.StringFlag{Name: "wallet, w", Usage: "Path to NEP-6 wallet"},
		cli.StringFlag{Name: "address, a", Usage: "Address of the wallet account to sign with"},
		cli.StringFlag{Name: "contract", Usage: "Vault contract address or hash"},
		cli.BoolFlag{Name: "debug, d", Usage: "Enable debug logging"},
	}
	app.Metadata = map[string]any{ctxKey: ctx}
	app.Before = func(c *cli.Context) error {
		log, err := newLogger(c.Bool("debug"))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		c.App.Metadata[logKey] = log
		return nil
	}
	app.After = func(c *cli.Context) error {
		if log, ok := c.App.Metadata[logKey].(*zap.Logger); ok {
			_ = log.Sync() // fails on terminals, nothing to do about it
		}
		return nil
	}

	mintFlag := cli.StringFlag{Name: "mint, m", Usage: "Token contract address or hash"}

	app.Commands = []cli.Command{
		{
			Name:      "derive",
			Usage:     "Derive vault identity for the mint without accessing the chain",
			UsageText: "vault --contract <hash> derive --mint <hash>",
			Flags:     []cli.Flag{mintFlag},
			Action:    deriveVault,
		},
		{
			Name:  "deploy",
			Usage: "Deploy new Vault contract or update the deployed one",
			UsageText: "vault -c config.yml --contract <hash> deploy (--src <dir> | --artefacts <dir>)\n" +
				"   vault -c config.yml deploy --new (--src <dir> | --artefacts <dir>)",
			Description: "Updates the contract set by --contract (or in the config) if it differs from\n" +
				"   the local one. Without the contract address a new instance is deployed, this\n" +
				"   must be confirmed by --new flag since the address of a new instance depends\n" +
				"   on the contract executable.",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "new", Usage: "Deploy new contract instance"},
				cli.StringFlag{Name: "src", Usage: "Directory with contract source code and config.yml to compile"},
				cli.StringFlag{Name: "artefacts", Usage: "Directory with compiled contract.nef and manifest.json"},
			},
			Action: deployContract,
		},
		{
			Name:      "create-vault",
			Usage:     "Create vault for the mint, signing account pays for it",
			UsageText: "vault -c config.yml create-vault --mint <hash>",
			Flags:     []cli.Flag{mintFlag},
			Action:    createVault,
		},
		{
			Name:      "deposit",
			Usage:     "Deposit tokens from the signing account into the mint vault",
			UsageText: "vault -c config.yml deposit --mint <hash> --amount <decimal>",
			Flags: []cli.Flag{
				mintFlag,
				cli.StringFlag{Name: "amount", Usage: "Amount of tokens, decimal"},
			},
			Action: deposit,
		},
		{
			Name:      "info",
			Usage:     "Print vault of the mint",
			UsageText: "vault -c config.yml info --mint <hash>",
			Flags:     []cli.Flag{mintFlag},
			Action:    vaultInfo,
		},
		{
			Name:      "list",
			Usage:     "Print all vaults",
			UsageText: "vault -c config.yml list",
			Action:    listVaults,
		},
		{
			Name:      "dump",
			Usage:     "Dump Vault contract and its mints storage for migration tests",
			UsageText: "vault -c config.yml dump --label testnet",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "label", Usage: "Label of the blockchain environment (e.g. 'testnet')"},
				cli.StringFlag{Name: "dir", Value: "testdata", Usage: "Directory to put dump into"},
			},
			Action: dumpContracts,
		},
	}

	return app
}
