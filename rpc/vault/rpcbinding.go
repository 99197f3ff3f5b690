// Package vault contains RPC wrappers for Vault contract.
package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Record is a contract-specific vault.Vault type used by its methods.
type Record struct {
	Authority util.Uint160
	Mint      util.Uint160
	Nonce     *big.Int
}

// Identity is a contract-specific vault.Identity type used by its methods.
type Identity struct {
	Address util.Uint160
	Nonce   *big.Int
}

// VaultCreatedEvent represents "VaultCreated" event emitted by the contract.
type VaultCreatedEvent struct {
	Vault     util.Uint160
	Mint      util.Uint160
	Authority util.Uint160
	Nonce     *big.Int
}

// DepositEvent represents "Deposit" event emitted by the contract.
type DepositEvent struct {
	Vault  util.Uint160
	Mint   util.Uint160
	User   util.Uint160
	Amount *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Hash returns address of the contract.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// Get invokes `get` method of contract. Missing vault is reported as
// ErrInvalidAccountLinkage.
func (c *ContractReader) Get(mint util.Uint160) (*Record, error) {
	res, err := itemToRecord(unwrap.Item(c.invoker.Call(c.hash, "get", mint)))
	return res, FromError(err)
}

// DeriveVault invokes `deriveVault` method of contract.
func (c *ContractReader) DeriveVault(mint util.Uint160) (*Identity, error) {
	res, err := itemToIdentity(unwrap.Item(c.invoker.Call(c.hash, "deriveVault", mint)))
	return res, FromError(err)
}

// Balance invokes `balance` method of contract.
func (c *ContractReader) Balance(mint util.Uint160) (*big.Int, error) {
	res, err := unwrap.BigInt(c.invoker.Call(c.hash, "balance", mint))
	return res, FromError(err)
}

// ListVaults invokes `listVaults` method of contract.
func (c *ContractReader) ListVaults() (uuid.UUID, result.Iterator, error) {
	sessionID, iter, err := unwrap.SessionIterator(c.invoker.Call(c.hash, "listVaults"))
	return sessionID, iter, FromError(err)
}

// ListVaultsExpanded is similar to ListVaults (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListVaultsExpanded(_numOfIteratorItems int) ([]*Record, error) {
	items, err := unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listVaults", _numOfIteratorItems))
	if err != nil {
		return nil, FromError(err)
	}

	return itemsToRecords(items)
}

// TraverseVaults reads all vault records through the session iterator
// returned by ListVaults in batches of the given size. Batch must be
// positive. Session is terminated on return.
func (c *ContractReader) TraverseVaults(batch int) ([]*Record, error) {
	if batch <= 0 {
		return nil, fmt.Errorf("non-positive iterator batch size %d", batch)
	}

	sessionID, iter, err := c.ListVaults()
	if err != nil {
		return nil, err
	}

	defer func() { _ = c.invoker.TerminateSession(sessionID) }()

	var res []*Record
	for {
		items, err := c.invoker.TraverseIterator(sessionID, &iter, batch)
		if err != nil {
			return nil, fmt.Errorf("traverse vault iterator: %w", err)
		}

		records, err := itemsToRecords(items)
		if err != nil {
			return nil, err
		}

		res = append(res, records...)

		if len(items) < batch {
			return res, nil
		}
	}
}

// CreateVault creates a transaction invoking `createVault` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) CreateVault(mint util.Uint160, payer util.Uint160) (util.Uint256, uint32, error) {
	h, vub, err := c.actor.SendCall(c.hash, "createVault", mint, payer)
	return h, vub, FromError(err)
}

// CreateVaultTransaction creates a transaction invoking `createVault` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) CreateVaultTransaction(mint util.Uint160, payer util.Uint160) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeCall(c.hash, "createVault", mint, payer)
	return tx, FromError(err)
}

// CreateVaultUnsigned creates a transaction invoking `createVault` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) CreateVaultUnsigned(mint util.Uint160, payer util.Uint160) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeUnsignedCall(c.hash, "createVault", nil, mint, payer)
	return tx, FromError(err)
}

// Deposit creates a transaction invoking `deposit` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Deposit(user util.Uint160, mint util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	h, vub, err := c.actor.SendCall(c.hash, "deposit", user, mint, amount)
	return h, vub, FromError(err)
}

// DepositTransaction creates a transaction invoking `deposit` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) DepositTransaction(user util.Uint160, mint util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeCall(c.hash, "deposit", user, mint, amount)
	return tx, FromError(err)
}

// DepositUnsigned creates a transaction invoking `deposit` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) DepositUnsigned(user util.Uint160, mint util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeUnsignedCall(c.hash, "deposit", nil, user, mint, amount)
	return tx, FromError(err)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(nefFile []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	h, vub, err := c.actor.SendCall(c.hash, "update", nefFile, manifest, data)
	return h, vub, FromError(err)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeCall(c.hash, "update", nefFile, manifest, data)
	return tx, FromError(err)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(nefFile []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	tx, err := c.actor.MakeUnsignedCall(c.hash, "update", nil, nefFile, manifest, data)
	return tx, FromError(err)
}

// itemToRecord converts stack item into *Record.
func itemToRecord(item stackitem.Item, err error) (*Record, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Record)
	err = res.FromStackItem(item)
	return res, err
}

func itemsToRecords(items []stackitem.Item) ([]*Record, error) {
	res := make([]*Record, 0, len(items))
	for i := range items {
		r, err := itemToRecord(items[i], nil)
		if err != nil {
			return nil, fmt.Errorf("vault record #%d: %w", i, err)
		}
		res = append(res, r)
	}
	return res, nil
}

// FromStackItem retrieves fields of Record from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Record) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.Authority, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Authority: %w", err)
	}

	index++
	res.Mint, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Mint: %w", err)
	}

	index++
	res.Nonce, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Nonce: %w", err)
	}

	return nil
}

// itemToIdentity converts stack item into *Identity.
func itemToIdentity(item stackitem.Item, err error) (*Identity, error) {
	if err != nil {
		return nil, err
	}
	var res = new(Identity)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Identity from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Identity) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var err error

	res.Address, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Address: %w", err)
	}

	res.Nonce, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Nonce: %w", err)
	}

	return nil
}

// VaultCreatedEventsFromApplicationLog retrieves a set of all emitted events
// with "VaultCreated" name from the provided [result.ApplicationLog].
func VaultCreatedEventsFromApplicationLog(log *result.ApplicationLog) ([]*VaultCreatedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*VaultCreatedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "VaultCreated" {
				continue
			}
			event := new(VaultCreatedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize VaultCreatedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to VaultCreatedEvent or
// returns an error if it's not possible to do to so.
func (e *VaultCreatedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var err error

	e.Vault, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Vault: %w", err)
	}

	e.Mint, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Mint: %w", err)
	}

	e.Authority, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field Authority: %w", err)
	}

	e.Nonce, err = arr[3].TryInteger()
	if err != nil {
		return fmt.Errorf("field Nonce: %w", err)
	}

	return nil
}

// DepositEventsFromApplicationLog retrieves a set of all emitted events
// with "Deposit" name from the provided [result.ApplicationLog].
func DepositEventsFromApplicationLog(log *result.ApplicationLog) ([]*DepositEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*DepositEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Deposit" {
				continue
			}
			event := new(DepositEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize DepositEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to DepositEvent or
// returns an error if it's not possible to do to so.
func (e *DepositEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var err error

	e.Vault, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Vault: %w", err)
	}

	e.Mint, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Mint: %w", err)
	}

	e.User, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field User: %w", err)
	}

	e.Amount, err = arr[3].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}
