package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/urfave/cli"
	"github.com/vaultlabs/vault-contract/contracts"
	"github.com/vaultlabs/vault-contract/deploy"
	"github.com/vaultlabs/vault-contract/rpc/vault"
	"github.com/vaultlabs/vault-contract/tests/dump"
	"github.com/vaultlabs/vault-contract/vaultid"
	"go.uber.org/zap"
)

const (
	ctxKey = "ctx"
	logKey = "log"
)

// listBatch is a number of vaults requested at once.
const listBatch = 100

// env groups services shared by commands.
type env struct {
	ctx context.Context
	cfg Config
	log *zap.Logger

	getPassword passwordFunc
}

func newEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	cfg.applyFlags(c)

	log, ok := c.App.Metadata[logKey].(*zap.Logger)
	if !ok {
		log = zap.NewNop()
	}

	ctx, ok := c.App.Metadata[ctxKey].(context.Context)
	if !ok {
		ctx = context.Background()
	}

	return &env{
		ctx:         ctx,
		cfg:         cfg,
		log:         log,
		getPassword: readPassword,
	}, nil
}

func (x *env) contract() (util.Uint160, error) {
	if x.cfg.Contract == "" {
		return util.Uint160{}, errors.New("missing Vault contract address")
	}
	h, err := parseHash(x.cfg.Contract)
	if err != nil {
		return h, fmt.Errorf("invalid Vault contract: %w", err)
	}
	return h, nil
}

func (x *env) account() (*wallet.Account, error) {
	err := x.cfg.validateWallet()
	if err != nil {
		return nil, err
	}
	return openAccount(x.cfg.Wallet.Path, x.cfg.Wallet.Address, x.getPassword)
}

func mintFromFlags(c *cli.Context) (util.Uint160, error) {
	s := c.String("mint")
	if s == "" {
		return util.Uint160{}, errors.New("missing mint")
	}
	h, err := parseHash(s)
	if err != nil {
		return h, fmt.Errorf("invalid mint: %w", err)
	}
	return h, nil
}

func deriveVault(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	mint, err := mintFromFlags(c)
	if err != nil {
		return err
	}

	id, err := vaultid.Derive(contract, mint)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Vault:   %s (%s)\n", id.Address.StringLE(), address.Uint160ToString(id.Address))
	fmt.Fprintf(c.App.Writer, "Nonce:   %d\n", id.Nonce)

	return nil
}

func deployContract(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	switch newInstance := c.Bool("new"); {
	case newInstance && e.cfg.Contract != "":
		return errors.New("--new and contract address are mutually exclusive")
	case !newInstance && e.cfg.Contract == "":
		return errors.New("missing Vault contract address to update, use --new to deploy new instance")
	}

	var ctr contracts.Contract

	switch src, dir := c.String("src"), c.String("artefacts"); {
	case src != "" && dir != "":
		return errors.New("--src and --artefacts are mutually exclusive")
	case src != "":
		ctr, err = contracts.Compile(src)
		if err != nil {
			return err
		}
	case dir != "":
		cs, err := contracts.Read(os.DirFS(dir), ".")
		if err != nil {
			return err
		}
		ctr = cs[0]
	default:
		return errors.New("either --src or --artefacts must be set")
	}

	acc, err := e.account()
	if err != nil {
		return err
	}

	prm := deploy.Prm{
		Logger:       e.log,
		LocalAccount: acc,
		Contract: deploy.CommonDeployPrm{
			NEF:      ctr.NEF,
			Manifest: ctr.Manifest,
		},
	}

	if e.cfg.Wallet.Committee != "" {
		prm.CommitteeAccount, err = openAccount(e.cfg.Wallet.Path, e.cfg.Wallet.Committee, e.getPassword)
		if err != nil {
			return fmt.Errorf("open committee account: %w", err)
		}
	}

	if e.cfg.Contract != "" {
		h, err := e.contract()
		if err != nil {
			return err
		}
		prm.Address = &h
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	prm.Blockchain = bc.rpc

	h, err := deploy.Deploy(e.ctx, prm)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Contract: %s (%s)\n", h.StringLE(), address.Uint160ToString(h))

	return nil
}

func createVault(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	mint, err := mintFromFlags(c)
	if err != nil {
		return err
	}

	acc, err := e.account()
	if err != nil {
		return err
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	a, err := actor.NewSimple(bc.rpc, acc)
	if err != nil {
		return fmt.Errorf("init actor: %w", err)
	}

	h, vub, err := vault.New(a, contract).CreateVault(mint, acc.ScriptHash())
	appLog, err := bc.await(e.ctx, a, h, vub, err)
	if err != nil {
		return fmt.Errorf("create vault: %w", err)
	}

	events, err := vault.VaultCreatedEventsFromApplicationLog(appLog)
	if err != nil {
		return err
	}

	for _, ev := range events {
		e.log.Info("vault created",
			zap.Stringer("vault", ev.Vault), zap.Stringer("mint", ev.Mint),
			zap.Stringer("authority", ev.Authority), zap.Stringer("nonce", ev.Nonce))
	}

	fmt.Fprintf(c.App.Writer, "Transaction: %s\n", h.StringLE())

	return nil
}

func deposit(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	mint, err := mintFromFlags(c)
	if err != nil {
		return err
	}

	acc, err := e.account()
	if err != nil {
		return err
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	decimals, err := nep17.NewReader(invoker.New(bc.rpc, nil), mint).Decimals()
	if err != nil {
		return fmt.Errorf("get token decimals: %w", err)
	}

	amount, err := parseAmount(c.String("amount"), decimals)
	if err != nil {
		return err
	}

	// token checks user witness being called by the vault
	a, err := actor.New(bc.rpc, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account:          acc.ScriptHash(),
			Scopes:           transaction.CalledByEntry | transaction.CustomContracts,
			AllowedContracts: []util.Uint160{mint},
		},
		Account: acc,
	}})
	if err != nil {
		return fmt.Errorf("init actor: %w", err)
	}

	h, vub, err := vault.New(a, contract).Deposit(acc.ScriptHash(), mint, amount)
	appLog, err := bc.await(e.ctx, a, h, vub, err)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	events, err := vault.DepositEventsFromApplicationLog(appLog)
	if err != nil {
		return err
	}

	for _, ev := range events {
		e.log.Info("deposit accepted",
			zap.Stringer("vault", ev.Vault), zap.Stringer("mint", ev.Mint),
			zap.Stringer("user", ev.User), zap.Stringer("amount", ev.Amount))
	}

	fmt.Fprintf(c.App.Writer, "Transaction: %s\n", h.StringLE())

	return nil
}

func parseAmount(s string, decimals int) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}

	amount, err := fixedn.FromString(s, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s", vault.ErrInvalidAmount, s)
	}

	return amount, nil
}

func vaultInfo(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	mint, err := mintFromFlags(c)
	if err != nil {
		return err
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	inv := invoker.New(bc.rpc, nil)
	r := vault.NewReader(inv, contract)

	id, err := r.DeriveVault(mint)
	if err != nil {
		return fmt.Errorf("derive vault: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Vault:     %s (%s)\n", id.Address.StringLE(), address.Uint160ToString(id.Address))

	rec, err := r.Get(mint)
	if err != nil {
		if errors.Is(err, vault.ErrInvalidAccountLinkage) {
			fmt.Fprintln(c.App.Writer, "Status:    not created")
			return nil
		}
		return fmt.Errorf("get vault: %w", err)
	}

	balance, err := r.Balance(mint)
	if err != nil {
		return fmt.Errorf("get vault balance: %w", err)
	}

	token := nep17.NewReader(inv, mint)

	symbol, err := token.Symbol()
	if err != nil {
		return fmt.Errorf("get token symbol: %w", err)
	}

	decimals, err := token.Decimals()
	if err != nil {
		return fmt.Errorf("get token decimals: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Mint:      %s (%s)\n", rec.Mint.StringLE(), symbol)
	fmt.Fprintf(c.App.Writer, "Authority: %s\n", address.Uint160ToString(rec.Authority))
	fmt.Fprintf(c.App.Writer, "Nonce:     %s\n", rec.Nonce)
	fmt.Fprintf(c.App.Writer, "Balance:   %s\n", fixedn.ToString(balance, decimals))

	return nil
}

func listVaults(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	records, err := readAllVaults(e.log, vault.NewReader(invoker.New(bc.rpc, nil), contract))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VAULT\tMINT\tAUTHORITY\tNONCE")

	for _, rec := range records {
		id := vaultid.Address(contract, rec.Mint, uint8(rec.Nonce.Uint64()))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id.StringLE(), rec.Mint.StringLE(), address.Uint160ToString(rec.Authority), rec.Nonce)
	}

	return tw.Flush()
}

// readAllVaults reads vaults through the iterator session falling back to
// in-VM expansion for RPC servers without sessions.
func readAllVaults(log *zap.Logger, r *vault.ContractReader) ([]*vault.Record, error) {
	records, err := r.TraverseVaults(listBatch)
	if err == nil {
		return records, nil
	}

	log.Debug("iterator sessions are unavailable, expanding iterator in VM", zap.Error(err))

	records, err = r.ListVaultsExpanded(listBatch)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}

	if len(records) == listBatch {
		log.Warn("vault list may be truncated", zap.Int("limit", listBatch))
	}

	return records, nil
}

func dumpContracts(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}

	contract, err := e.contract()
	if err != nil {
		return err
	}

	label, dir := c.String("label"), c.String("dir")
	if label == "" {
		return errors.New("missing blockchain label")
	}

	err = os.MkdirAll(dir, 0700)
	if err != nil {
		return fmt.Errorf("create root dir: %w", err)
	}

	bc, err := newRemoteBlockchain(e.ctx, e.cfg)
	if err != nil {
		return err
	}
	defer bc.close()

	n, err := bc.rpc.GetBlockCount()
	if err != nil {
		return fmt.Errorf("get number of the latest block: %w", err)
	}
	height := n - 1

	d, err := dump.NewCreator(dir, dump.ID{
		Label: label,
		Block: height,
	})
	if err != nil {
		return fmt.Errorf("init local dumper: %w", err)
	}
	defer d.Close()

	err = overtakeContract(bc, height, contract, d.SetVault)
	if err != nil {
		return err
	}

	records, err := readAllVaults(e.log, vault.NewReader(invoker.New(bc.rpc, nil), contract))
	if err != nil {
		return err
	}

	for _, rec := range records {
		err = overtakeContract(bc, height, rec.Mint, d.AddMint)
		if errors.Is(err, errNativeContract) {
			e.log.Info("skip native mint", zap.Stringer("mint", rec.Mint))
			continue
		}
		if err != nil {
			return err
		}
	}

	err = d.Flush()
	if err != nil {
		return fmt.Errorf("flush dump: %w", err)
	}

	e.log.Info("contracts are successfully dumped", zap.String("dir", dir), zap.Int("vaults", len(records)))

	return nil
}

var errNativeContract = errors.New("native contract")

func overtakeContract(from *remoteBlockchain, height uint32, h util.Uint160, add func(state.Contract) *dump.StorageWriter) error {
	st, err := from.rpc.GetContractStateByHash(h)
	if err != nil {
		return fmt.Errorf("get state of the contract %s: %w", h.StringLE(), err)
	}

	if st.ID < 0 {
		return errNativeContract
	}

	err = from.iterateContractStorage(h, height, add(*st).Write)
	if err != nil {
		return fmt.Errorf("iterate storage of the contract %s: %w", h.StringLE(), err)
	}

	return nil
}
