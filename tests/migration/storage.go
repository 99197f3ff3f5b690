package migration

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/config"
	"github.com/nspcc-dev/neo-go/pkg/core"
	"github.com/nspcc-dev/neo-go/pkg/core/dao"
	"github.com/nspcc-dev/neo-go/pkg/core/native"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/neotest/chain"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
	"github.com/vaultlabs/vault-contract/tests/dump"
)

// Contract provides part of Neo blockchain services primarily related to the
// Vault contract being tested. Initial state of the tested contract is
// initialized from the dump of the blockchain in which it has already been
// deployed, together with the mint contracts its vaults hold funds in. After
// preparing the test shell of the blockchain from the input data, the
// contract can be updated using the appropriate methods. Contract also
// provides data access interfaces that can be used to ensure that data is
// migrated correctly.
//
// Contract instances must be constructed using NewContract.
type Contract struct {
	id   int32
	hash util.Uint160

	exec *neotest.Executor

	invoker *neotest.ContractInvoker

	bNEF      []byte
	jManifest []byte
}

// ContractOptions groups various options of NewContract.
type ContractOptions struct {
	// Path to the directory containing source code of the Vault contract.
	// Defaults to the current directory.
	SourceCodeDir string

	// Listener of storage dump of the Vault contract. Useful for working with
	// raw values that can not be accessed by the contract API.
	StorageDumpHandler func(key, value []byte)
}

// NewContract constructs Contract from provided dump.Reader.
//
// The Contract is initialized with the Vault contract and all mints (states
// and data) from the dump.Reader. If you need to process storage items of the
// Vault contract before the chain is initialized, use
// ContractOptions.StorageDumpHandler. If set, NewContract passes each
// key-value item into the function.
//
// New version of the contract executable is compiled from
// ContractOptions.SourceCodeDir.
func NewContract(tb testing.TB, d *dump.Reader, opts ContractOptions) *Contract {
	lowLevelStore := storage.NewMemoryStore()
	cachedStore := storage.NewMemCachedStore(lowLevelStore) // mem-cached store has sweeter interface
	_dao := dao.NewSimple(lowLevelStore, false)

	nativeContracts := native.NewContracts(config.ProtocolConfiguration{})

	err := nativeContracts.Management.InitializeCache(0, _dao)
	require.NoError(tb, err)

	putStorage := func(id int32, key, value []byte) {
		storageKey := make([]byte, 5+len(key))
		storageKey[0] = byte(_dao.Version.StoragePrefix)
		binary.LittleEndian.PutUint32(storageKey[1:], uint32(id))
		copy(storageKey[5:], key)

		cachedStore.Put(storageKey, value)
	}

	putContract := func(st state.Contract) {
		st.UpdateCounter = 0 // contract could be dumped as already updated

		err := native.PutContractState(_dao, &st)
		require.NoError(tb, err)
	}

	tested := d.Vault()
	putContract(tested)

	d.IterateVaultStorage(func(key, value []byte) {
		if opts.StorageDumpHandler != nil {
			opts.StorageDumpHandler(key, value)
		}

		putStorage(tested.ID, key, value)
	})

	for _, mint := range d.Mints() {
		if mint.ID < 0 {
			continue // native contracts are initialized by the chain itself
		}

		putContract(mint)

		d.IterateMintStorage(mint.Hash, func(key, value []byte) {
			putStorage(mint.ID, key, value)
		})
	}

	_, err = _dao.PersistSync()
	require.NoError(tb, err)

	_, err = cachedStore.PersistSync()
	require.NoError(tb, err)

	// init test blockchain
	useDefaultConfig := func(*config.Blockchain) {}
	var blockChain *core.Blockchain

	{ // FIXME: hack area, track neo-go#2926
		// contracts embedded in the blockchain the moment before are not visible unless
		// the blockchain is run twice. At the same time, in order not to clear the
		// storage, method Close is overridden.
		var run bool // otherwise on tb.Cleanup will panic which is not critical, but not pleasant either
		blockChain, _ = chain.NewSingleWithCustomConfigAndStore(tb, useDefaultConfig, nopCloseStore{lowLevelStore}, run)
		go blockChain.Run()
		blockChain.Close()
	}

	blockChain, committeeSigner := chain.NewSingleWithCustomConfigAndStore(tb, useDefaultConfig, lowLevelStore, true)

	exec := neotest.NewExecutor(tb, blockChain, committeeSigner, committeeSigner)

	// compile new contract version
	if opts.SourceCodeDir == "" {
		opts.SourceCodeDir = "."
	}

	ctr := neotest.CompileFile(tb, exec.CommitteeHash, opts.SourceCodeDir, filepath.Join(opts.SourceCodeDir, "config.yml"))

	bNEF, err := ctr.NEF.Bytes()
	require.NoError(tb, err)

	jManifest, err := json.Marshal(ctr.Manifest)
	require.NoError(tb, err)

	return &Contract{
		id:        tested.ID,
		hash:      tested.Hash,
		exec:      exec,
		invoker:   exec.NewInvoker(tested.Hash, committeeSigner),
		bNEF:      bNEF,
		jManifest: jManifest,
	}
}

// Hash returns address of the tested contract.
func (x *Contract) Hash() util.Uint160 {
	return x.hash
}

func (x *Contract) checkUpdate(tb testing.TB, faultException string, args ...any) {
	const updateMethod = "update"

	if faultException != "" {
		x.invoker.InvokeFail(tb, faultException, updateMethod, x.bNEF, x.jManifest, args)
		return
	}

	var noResult stackitem.Null
	x.invoker.Invoke(tb, noResult, updateMethod, x.bNEF, x.jManifest, args)
}

// CheckUpdateSuccess tests that contract update with given arguments succeeds.
// Contract executable (NEF and manifest) is compiled from source code (see
// NewContract for details).
func (x *Contract) CheckUpdateSuccess(tb testing.TB, args ...any) {
	x.checkUpdate(tb, "", args...)
}

// CheckUpdateFail tests that contract update with given arguments fails with exact fault
// exception.
//
// See also CheckUpdateSuccess.
func (x *Contract) CheckUpdateFail(tb testing.TB, faultException string, args ...any) {
	x.checkUpdate(tb, faultException, args...)
}

func makeTestInvoke(tb testing.TB, inv *neotest.ContractInvoker, method string, args ...any) stackitem.Item {
	vmStack, err := inv.TestInvoke(tb, method, args...)
	require.NoError(tb, err, "method '%s'", method)

	// FIXME: temp hack
	res, err := unwrap.Item(&result.Invoke{
		State: vmstate.Halt.String(),
		Stack: vmStack.ToArray(),
	}, nil)
	require.NoError(tb, err)

	return res
}

// Call tests that calling the contract method with optional arguments succeeds
// and result contains single value. The resulting value is returned as
// stackitem.Item.
//
// Note that Call doesn't change the chain state, so only read (aka safe)
// methods should be used.
func (x *Contract) Call(tb testing.TB, method string, args ...any) stackitem.Item {
	return makeTestInvoke(tb, x.invoker, method, args...)
}

// CallOther is like Call but for any other contract deployed on the test
// chain, e.g. a mint of some vault.
func (x *Contract) CallOther(tb testing.TB, contract util.Uint160, method string, args ...any) stackitem.Item {
	return makeTestInvoke(tb, x.exec.CommitteeInvoker(contract), method, args...)
}

// GetStorageItem returns value stored in the tested contract by key.
func (x *Contract) GetStorageItem(key []byte) []byte {
	return x.exec.Chain.GetStorageItem(x.id, key)
}

// SeekStorage passes all storage items of the tested contract with the given
// prefix into f until it returns false.
func (x *Contract) SeekStorage(prefix []byte, f func(k, v []byte) bool) {
	x.exec.Chain.SeekStorage(x.id, prefix, f)
}
