package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/vaultlabs/vault-contract/rpc/vault"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for Vault contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// CommonDeployPrm groups common deployment parameters of the smart contract.
type CommonDeployPrm struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Prm groups all parameters of the Vault contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance.
	Blockchain Blockchain

	// Local process account used for transaction signing and paying fees (must
	// be unlocked).
	LocalAccount *wallet.Account

	// Committee multi-signature account. Required for updates only (must be
	// unlocked).
	CommitteeAccount *wallet.Account

	// Address of the already deployed contract. If nil, the address is
	// calculated from the LocalAccount and the contract being deployed. Since
	// the calculated address depends on the NEF checksum, updates must always
	// set it, otherwise a changed contract is deployed as a new instance.
	Address *util.Uint160

	// Arguments passed to update method of the contract along with the
	// new version.
	UpdateData []any

	Contract CommonDeployPrm
}

var (
	// ErrUpdateWitnessMissing is returned when on-chain contract must be
	// updated, but no committee account is provided.
	ErrUpdateWitnessMissing = errors.New("committee account is required to update the contract")

	errTxFailed = errors.New("transaction failed")
)

// Deploy synchronizes Vault contract on the chain represented by given
// Prm.Blockchain with the local one: the contract is deployed if missing,
// updated if it differs from the local one and left as is otherwise. Deploy
// returns on-chain address of the contract.
//
// Deploy waits for every sent transaction to be accepted and aborts only by
// context or when a fatal error occurs.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	if prm.LocalAccount == nil {
		return util.Uint160{}, errors.New("missing local account")
	}

	var (
		name    = prm.Contract.Manifest.Name
		address = ContractAddress(prm.LocalAccount.ScriptHash(), prm.Contract)
	)

	if prm.Address != nil {
		address = *prm.Address
	}

	l := prm.Logger.With(zap.String("contract", name), zap.Stringer("address", address))

	onChain, err := prm.Blockchain.GetContractStateByHash(address)
	if err != nil {
		if !isErrContractNotFound(err) {
			return util.Uint160{}, fmt.Errorf("get state of the contract %s by address %s: %w", name, address, err)
		}

		if prm.Address != nil {
			return util.Uint160{}, fmt.Errorf("contract %s is missing at address %s", name, address)
		}

		l.Info("contract is missing on the chain, deploying...")

		err = deployContract(ctx, prm)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("deploy contract %s: %w", name, err)
		}

		l.Info("contract successfully deployed")

		return address, nil
	}

	if onChain.Manifest.Name != name {
		return util.Uint160{}, fmt.Errorf("contract at %s is %q, expected %q", address, onChain.Manifest.Name, name)
	}

	if onChain.NEF.Checksum == prm.Contract.NEF.Checksum {
		l.Info("contract is up to date on the chain")
		return address, nil
	}

	if prm.CommitteeAccount == nil {
		return util.Uint160{}, ErrUpdateWitnessMissing
	}

	l.Info("on-chain contract differs from the local one, updating...",
		zap.Uint32("on-chain checksum", onChain.NEF.Checksum),
		zap.Uint32("local checksum", prm.Contract.NEF.Checksum))

	err = updateContract(ctx, prm, address)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("update contract %s: %w", name, err)
	}

	l.Info("contract successfully updated")

	return address, nil
}

// ContractAddress returns address of the contract deployed by the given
// sender.
func ContractAddress(sender util.Uint160, c CommonDeployPrm) util.Uint160 {
	return state.CreateContractHash(sender, c.NEF.Checksum, c.Manifest.Name)
}

func deployContract(ctx context.Context, prm Prm) error {
	a, err := actor.NewTuned(prm.Blockchain, []actor.SignerAccount{{
		Signer: transaction.Signer{
			Account: prm.LocalAccount.ScriptHash(),
			Scopes:  transaction.CalledByEntry,
		},
		Account: prm.LocalAccount,
	}}, actor.Options{
		CheckerModifier: vaultRuntimeTransactionModifier(func() uint32 { return blockHeight(prm.Blockchain) }),
	})
	if err != nil {
		return fmt.Errorf("init transaction sender from local account: %w", err)
	}

	return await(ctx, prm.Logger, a, func() (util.Uint256, uint32, error) {
		return management.New(a).Deploy(&prm.Contract.NEF, &prm.Contract.Manifest, nil)
	})
}

func updateContract(ctx context.Context, prm Prm, address util.Uint160) error {
	a, err := actor.NewTuned(prm.Blockchain, []actor.SignerAccount{
		{
			Signer: transaction.Signer{
				Account: prm.LocalAccount.ScriptHash(),
				Scopes:  transaction.None,
			},
			Account: prm.LocalAccount,
		},
		{
			Signer: transaction.Signer{
				Account: prm.CommitteeAccount.ScriptHash(),
				Scopes:  transaction.CalledByEntry,
			},
			Account: prm.CommitteeAccount,
		},
	}, actor.Options{
		CheckerModifier: vaultRuntimeTransactionModifier(func() uint32 { return blockHeight(prm.Blockchain) }),
	})
	if err != nil {
		return fmt.Errorf("init transaction sender from local and committee accounts: %w", err)
	}

	bNEF, err := prm.Contract.NEF.Bytes()
	if err != nil {
		return fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(prm.Contract.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	var data any
	if prm.UpdateData != nil {
		data = prm.UpdateData
	}

	return await(ctx, prm.Logger, a, func() (util.Uint256, uint32, error) {
		return vault.New(a, address).Update(bNEF, jManifest, data)
	})
}

// await sends transaction and waits for it to be accepted by the chain.
func await(ctx context.Context, l *zap.Logger, a *actor.Actor, send func() (util.Uint256, uint32, error)) error {
	type waitResult struct {
		res *state.AppExecResult
		err error
	}

	h, vub, err := send()
	if err != nil {
		return fmt.Errorf("send transaction: %w", err)
	}

	l.Debug("transaction sent, waiting for it to be accepted...",
		zap.Stringer("tx", h), zap.Uint32("vub", vub))

	ch := make(chan waitResult, 1)
	go func() {
		res, err := a.Wait(h, vub, nil)
		ch <- waitResult{res, err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait for transaction %s: %w", h, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return fmt.Errorf("wait for transaction %s: %w", h, r.err)
		}

		return checkExecResult(r.res)
	}
}

func checkExecResult(res *state.AppExecResult) error {
	if res.VMState != vmstate.Halt {
		return fmt.Errorf("%w: %s (%s)", errTxFailed, res.VMState, res.FaultException)
	}

	return nil
}

func blockHeight(b Blockchain) uint32 {
	n, err := b.GetBlockCount()
	if err != nil || n == 0 {
		return 0
	}
	return n - 1
}

func isErrContractNotFound(err error) bool {
	return strings.Contains(err.Error(), "Unknown contract")
}

// returns actor.TransactionCheckerModifier which checks that invocation
// finished with 'HALT' state and, if so, sets transaction's nonce and
// ValidUntilBlock to 100*N and 100*(N+1) correspondingly, where
// 100*N <= current height < 100*(N+1). Repeated deployment attempts within the
// same span produce the same transaction.
func vaultRuntimeTransactionModifier(getBlockchainHeight func() uint32) actor.TransactionCheckerModifier {
	return func(r *result.Invoke, tx *transaction.Transaction) error {
		err := actor.DefaultCheckerModifier(r, tx)
		if err != nil {
			return vault.FromError(err)
		}

		curHeight := getBlockchainHeight()
		const span = 100
		n := curHeight / span

		tx.Nonce = n * span

		if math.MaxUint32-span > tx.Nonce {
			tx.ValidUntilBlock = tx.Nonce + span
		} else {
			tx.ValidUntilBlock = math.MaxUint32
		}

		return nil
	}
}
