package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

type testInv struct {
	err error
	res *result.Invoke

	batches    [][]stackitem.Item
	terminated bool
}

func (t *testInv) Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	return t.res, t.err
}

func (t *testInv) CallAndExpandIterator(contract util.Uint160, operation string, i int, params ...any) (*result.Invoke, error) {
	return t.res, t.err
}

func (t *testInv) TraverseIterator(uuid.UUID, *result.Iterator, int) ([]stackitem.Item, error) {
	if len(t.batches) == 0 {
		return nil, nil
	}
	b := t.batches[0]
	t.batches = t.batches[1:]
	return b, nil
}

func (t *testInv) TerminateSession(uuid.UUID) error {
	t.terminated = true
	return nil
}

type testAct struct {
	testInv

	sendErr error
}

func (t *testAct) MakeCall(util.Uint160, string, ...any) (*transaction.Transaction, error) {
	return nil, t.sendErr
}

func (t *testAct) MakeUnsignedCall(util.Uint160, string, []transaction.Attribute, ...any) (*transaction.Transaction, error) {
	return nil, t.sendErr
}

func (t *testAct) SendCall(util.Uint160, string, ...any) (util.Uint256, uint32, error) {
	return util.Uint256{}, 0, t.sendErr
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{
		State: "HALT",
		Stack: items,
	}
}

func recordItem(authority, mint util.Uint160, nonce int64) stackitem.Item {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(authority.BytesBE()),
		stackitem.NewByteArray(mint.BytesBE()),
		stackitem.NewBigInteger(big.NewInt(nonce)),
	})
}

func TestReaderErrors(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, util.Uint160{1, 2, 3})
	require.Equal(t, util.Uint160{1, 2, 3}, r.Hash())

	ti.err = errors.New("bad")
	_, err := r.Get(util.Uint160{4})
	require.Error(t, err)

	ti.err = nil
	ti.res = halt(stackitem.Make(42))
	_, err = r.Get(util.Uint160{4})
	require.Error(t, err)

	ti.res = halt(stackitem.NewStruct([]stackitem.Item{stackitem.Make(1)}))
	_, err = r.DeriveVault(util.Uint160{4})
	require.Error(t, err)

	ti.res = &result.Invoke{
		State:          "FAULT",
		FaultException: `at instruction 12 (THROW): unhandled exception: "invalid account linkage: vault not found"`,
	}
	_, err = r.Get(util.Uint160{4})
	require.ErrorIs(t, err, ErrInvalidAccountLinkage)
	_, err = r.Balance(util.Uint160{4})
	require.ErrorIs(t, err, ErrInvalidAccountLinkage)
}

func TestReaderGet(t *testing.T) {
	authority, mint := util.Uint160{0xaa}, util.Uint160{0xbb}

	ti := &testInv{res: halt(recordItem(authority, mint, 255))}
	r := NewReader(ti, util.Uint160{1})

	v, err := r.Get(mint)
	require.NoError(t, err)
	require.Equal(t, &Record{
		Authority: authority,
		Mint:      mint,
		Nonce:     big.NewInt(255),
	}, v)

	ti.res = halt(stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(util.Uint160{0xcc}.BytesBE()),
		stackitem.NewBigInteger(big.NewInt(254)),
	}))
	id, err := r.DeriveVault(mint)
	require.NoError(t, err)
	require.Equal(t, util.Uint160{0xcc}, id.Address)
	require.EqualValues(t, 254, id.Nonce.Int64())

	ti.res = halt(stackitem.Make(1000))
	b, err := r.Balance(mint)
	require.NoError(t, err)
	require.EqualValues(t, 1000, b.Int64())
}

func TestReaderListVaults(t *testing.T) {
	ti := &testInv{
		res: halt(stackitem.NewArray([]stackitem.Item{
			recordItem(util.Uint160{1}, util.Uint160{2}, 255),
			recordItem(util.Uint160{3}, util.Uint160{4}, 255),
		})),
	}
	r := NewReader(ti, util.Uint160{1})

	vs, err := r.ListVaultsExpanded(10)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	require.Equal(t, util.Uint160{4}, vs[1].Mint)

	ti.res = halt(stackitem.NewArray([]stackitem.Item{stackitem.Make(1)}))
	_, err = r.ListVaultsExpanded(10)
	require.Error(t, err)

	ti.res = halt(stackitem.NewInterop(result.Iterator{ID: &uuid.UUID{}}))
	ti.res.Session = uuid.New()
	ti.batches = [][]stackitem.Item{
		{recordItem(util.Uint160{1}, util.Uint160{2}, 255), recordItem(util.Uint160{3}, util.Uint160{4}, 255)},
		{recordItem(util.Uint160{5}, util.Uint160{6}, 255)},
	}
	vs, err = r.TraverseVaults(2)
	require.NoError(t, err)
	require.Len(t, vs, 3)
	require.Equal(t, util.Uint160{5}, vs[2].Authority)
	require.True(t, ti.terminated)
}

func TestReaderListVaultsFault(t *testing.T) {
	ti := &testInv{res: &result.Invoke{
		State:          "FAULT",
		FaultException: `unhandled exception: "invalid account linkage: no usable identity"`,
	}}
	r := NewReader(ti, util.Uint160{1})

	_, err := r.ListVaultsExpanded(10)
	require.ErrorIs(t, err, ErrInvalidAccountLinkage)

	_, _, err = r.ListVaults()
	require.ErrorIs(t, err, ErrInvalidAccountLinkage)
}

func TestTraverseVaultsInvalidBatch(t *testing.T) {
	ti := &testInv{res: halt(stackitem.NewInterop(result.Iterator{ID: &uuid.UUID{}}))}
	ti.res.Session = uuid.New()
	r := NewReader(ti, util.Uint160{1})

	for _, batch := range []int{0, -1} {
		_, err := r.TraverseVaults(batch)
		require.Error(t, err, batch)
	}
	require.False(t, ti.terminated, "session must not be opened")
}

func TestContractFaults(t *testing.T) {
	ta := &testAct{sendErr: errors.New(`invocation failed: "unauthorized: committee witness check failed"`)}
	c := New(ta, util.Uint160{1})

	_, _, err := c.Update(nil, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.UpdateTransaction(nil, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.UpdateUnsigned(nil, nil, nil)
	require.ErrorIs(t, err, ErrUnauthorized)

	ta.sendErr = errors.New(`invocation failed: "vault already exists"`)
	_, _, err = c.CreateVault(util.Uint160{2}, util.Uint160{3})
	require.ErrorIs(t, err, ErrAlreadyExists)
	_, err = c.CreateVaultTransaction(util.Uint160{2}, util.Uint160{3})
	require.ErrorIs(t, err, ErrAlreadyExists)
	_, err = c.CreateVaultUnsigned(util.Uint160{2}, util.Uint160{3})
	require.ErrorIs(t, err, ErrAlreadyExists)

	ta.sendErr = errors.New(`invocation failed: "insufficient funds"`)
	_, _, err = c.Deposit(util.Uint160{3}, util.Uint160{2}, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = c.DepositTransaction(util.Uint160{3}, util.Uint160{2}, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = c.DepositUnsigned(util.Uint160{3}, util.Uint160{2}, big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	ta.sendErr = nil
	_, _, err = c.Update(nil, nil, nil)
	require.NoError(t, err)
}

func TestEventsFromApplicationLog(t *testing.T) {
	_, err := VaultCreatedEventsFromApplicationLog(nil)
	require.Error(t, err)

	vault, mint, user := util.Uint160{1}, util.Uint160{2}, util.Uint160{3}

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			Events: []state.NotificationEvent{
				{
					Name: "VaultCreated",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.NewByteArray(vault.BytesBE()),
						stackitem.NewByteArray(mint.BytesBE()),
						stackitem.NewByteArray(user.BytesBE()),
						stackitem.Make(255),
					}),
				},
				{
					Name: "Transfer",
					Item: stackitem.NewArray(nil),
				},
				{
					Name: "Deposit",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.NewByteArray(vault.BytesBE()),
						stackitem.NewByteArray(mint.BytesBE()),
						stackitem.NewByteArray(user.BytesBE()),
						stackitem.Make(100),
					}),
				},
			},
		}},
	}

	created, err := VaultCreatedEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*VaultCreatedEvent{{
		Vault:     vault,
		Mint:      mint,
		Authority: user,
		Nonce:     big.NewInt(255),
	}}, created)

	deposits, err := DepositEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	require.Equal(t, user, deposits[0].User)
	require.EqualValues(t, 100, deposits[0].Amount.Int64())

	log.Executions[0].Events[2].Item = stackitem.NewArray([]stackitem.Item{stackitem.Make(1)})
	_, err = DepositEventsFromApplicationLog(log)
	require.Error(t, err)
}

func TestParseFault(t *testing.T) {
	for exc, code := range map[string]error{
		`unhandled exception: "vault already exists"`:                     ErrAlreadyExists,
		`unhandled exception: "invalid account linkage: unknown mint"`:    ErrInvalidAccountLinkage,
		`unhandled exception: "unauthorized: owner witness check failed"`: ErrUnauthorized,
		`unhandled exception: "insufficient funds"`:                       ErrInsufficientFunds,
		`unhandled exception: "invalid amount: 0"`:                        ErrInvalidAmount,
	} {
		err := ParseFault(exc)
		require.ErrorIs(t, err, code, exc)
		require.Equal(t, exc, err.Error())
	}

	require.NoError(t, ParseFault("gas limit exceeded"))

	cause := errors.New(`invocation failed: "insufficient funds"`)
	err := FromError(cause)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, err, cause)

	other := errors.New("connection refused")
	require.Equal(t, other, FromError(other))
	require.NoError(t, FromError(nil))
}
