package deploy

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/stretchr/testify/require"
	"github.com/vaultlabs/vault-contract/rpc/vault"
	"go.uber.org/zap/zaptest"
)

func TestVaultRuntimeTransactionModifier(t *testing.T) {
	t.Run("invalid invocation result state", func(t *testing.T) {
		var res result.Invoke
		res.State = "FAULT" // any non-HALT
		res.FaultException = "invalid amount: 0"

		err := vaultRuntimeTransactionModifier(func() uint32 { return 0 })(&res, new(transaction.Transaction))
		require.ErrorIs(t, err, vault.ErrInvalidAmount)
	})

	var validRes result.Invoke
	validRes.State = "HALT"

	for _, tc := range []struct {
		curHeight     uint32
		expectedNonce uint32
		expectedVUB   uint32
	}{
		{curHeight: 0, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 1, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 99, expectedNonce: 0, expectedVUB: 100},
		{curHeight: 100, expectedNonce: 100, expectedVUB: 200},
		{curHeight: 199, expectedNonce: 100, expectedVUB: 200},
		{curHeight: 200, expectedNonce: 200, expectedVUB: 300},
		{curHeight: math.MaxUint32 - 50, expectedNonce: 100 * (math.MaxUint32 / 100), expectedVUB: math.MaxUint32},
	} {
		m := vaultRuntimeTransactionModifier(func() uint32 { return tc.curHeight })

		var tx transaction.Transaction

		err := m(&validRes, &tx)
		require.NoError(t, err, tc)
		require.EqualValues(t, tc.expectedNonce, tx.Nonce, tc)
		require.EqualValues(t, tc.expectedVUB, tx.ValidUntilBlock, tc)
	}
}

// stateBlockchain serves contract states only, any attempt to send a
// transaction panics on nil RPCActor.
type stateBlockchain struct {
	actor.RPCActor

	f func(util.Uint160) (*state.Contract, error)
}

func (s stateBlockchain) GetContractStateByHash(h util.Uint160) (*state.Contract, error) {
	return s.f(h)
}

func testContract(t *testing.T, script []byte) CommonDeployPrm {
	f, err := nef.NewFile(script)
	require.NoError(t, err)

	return CommonDeployPrm{
		NEF:      *f,
		Manifest: *manifest.NewManifest("Vault"),
	}
}

func TestDeploy(t *testing.T) {
	acc, err := wallet.NewAccount()
	require.NoError(t, err)

	var (
		local    = testContract(t, []byte{1, 2, 3})
		expected = ContractAddress(acc.ScriptHash(), local)
		onChain  = &state.Contract{
			ContractBase: state.ContractBase{
				Hash:     expected,
				NEF:      local.NEF,
				Manifest: local.Manifest,
			},
		}
		prm = Prm{
			Logger:       zaptest.NewLogger(t),
			LocalAccount: acc,
			Contract:     local,
		}
	)

	t.Run("up to date", func(t *testing.T) {
		var requested util.Uint160
		prm.Blockchain = stateBlockchain{f: func(h util.Uint160) (*state.Contract, error) {
			requested = h
			return onChain, nil
		}}

		addr, err := Deploy(context.Background(), prm)
		require.NoError(t, err)
		require.Equal(t, expected, addr)
		require.Equal(t, expected, requested)
	})

	t.Run("explicit address", func(t *testing.T) {
		explicit := util.Uint160{1, 2, 3}
		p := prm
		p.Address = &explicit
		p.Blockchain = stateBlockchain{f: func(h util.Uint160) (*state.Contract, error) {
			require.Equal(t, explicit, h)
			return onChain, nil
		}}

		addr, err := Deploy(context.Background(), p)
		require.NoError(t, err)
		require.Equal(t, explicit, addr)

		p.Blockchain = stateBlockchain{f: func(util.Uint160) (*state.Contract, error) {
			return nil, errors.New("Unknown contract")
		}}
		_, err = Deploy(context.Background(), p)
		require.ErrorContains(t, err, "is missing")
	})

	t.Run("state failure", func(t *testing.T) {
		prm.Blockchain = stateBlockchain{f: func(util.Uint160) (*state.Contract, error) {
			return nil, errors.New("connection refused")
		}}

		_, err := Deploy(context.Background(), prm)
		require.ErrorContains(t, err, "connection refused")
	})

	t.Run("foreign contract", func(t *testing.T) {
		foreign := *onChain
		foreign.Manifest = *manifest.NewManifest("Token")
		prm.Blockchain = stateBlockchain{f: func(util.Uint160) (*state.Contract, error) {
			return &foreign, nil
		}}

		_, err := Deploy(context.Background(), prm)
		require.Error(t, err)
	})

	t.Run("update without committee", func(t *testing.T) {
		outdated := *onChain
		outdated.NEF = testContract(t, []byte{4, 5, 6}).NEF
		prm.Blockchain = stateBlockchain{f: func(util.Uint160) (*state.Contract, error) {
			return &outdated, nil
		}}

		_, err := Deploy(context.Background(), prm)
		require.ErrorIs(t, err, ErrUpdateWitnessMissing)
	})

	t.Run("missing local account", func(t *testing.T) {
		p := prm
		p.LocalAccount = nil

		_, err := Deploy(context.Background(), p)
		require.Error(t, err)
	})
}

func TestCheckExecResult(t *testing.T) {
	require.NoError(t, checkExecResult(&state.AppExecResult{
		Execution: state.Execution{VMState: vmstate.Halt},
	}))

	err := checkExecResult(&state.AppExecResult{
		Execution: state.Execution{VMState: vmstate.Fault, FaultException: "boom"},
	})
	require.ErrorIs(t, err, errTxFailed)
	require.ErrorContains(t, err, "boom")
}
