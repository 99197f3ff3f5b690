package vault

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/vaultlabs/vault-contract/common"
	"github.com/vaultlabs/vault-contract/contracts/vault/vaultconst"
)

type (
	// Vault is a record stored once per mint.
	Vault struct {
		// Account that created the vault.
		Authority interop.Hash160
		// NEP-17 contract of the vaulted token.
		Mint interop.Hash160
		// Nonce the vault identity was derived with.
		Nonce int
	}

	// Identity is a derived vault address together with its nonce.
	Identity struct {
		Address interop.Hash160
		Nonce   int
	}
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	runtime.Log("vault contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(nefFile, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic(vaultconst.ErrUnauthorized + ": " + common.ErrCommitteeWitnessFailed)
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("vault contract updated")
}

// CreateVault creates a vault for the given NEP-17 mint. The payer must
// witness the invocation. Vault identity is derived from the mint, so the
// vault can be created at most once per mint.
//
// It produces VaultCreated notification.
func CreateVault(mint, payer interop.Hash160) Vault {
	if len(mint) != interop.Hash160Len {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonInvalidMint)
	}

	common.CheckPayerWitness(vaultconst.ErrUnauthorized, payer)

	if management.GetContract(mint) == nil {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonUnknownMint)
	}

	ctx := storage.GetContext()
	self := runtime.GetExecutingScriptHash()

	id, nonce := deriveVault(self, mint)
	key := vaultKey(id)
	if storage.Get(ctx, key) != nil {
		panic(vaultconst.ErrAlreadyExists)
	}

	// mint must behave as a token ledger: both calls fault otherwise
	contract.Call(mint, "decimals", contract.ReadStates)
	contract.Call(mint, "balanceOf", contract.ReadStates, self)

	v := Vault{
		Authority: payer,
		Mint:      mint,
		Nonce:     nonce,
	}

	common.SetSerialized(ctx, key, v)

	runtime.Log("vault created")
	runtime.Notify("VaultCreated", id, mint, payer, nonce)

	return v
}

// Deposit transfers amount of mint tokens from user account to the vault
// of the mint. It can be invoked only by the user.
//
// Vault is located by derivation from mint, the transfer itself is made by
// the mint contract, the vault never changes balances on its own.
//
// It produces Deposit notification.
func Deposit(user, mint interop.Hash160, amount int) {
	if amount <= 0 {
		panic(vaultconst.ErrInvalidAmount + ": " + std.Itoa(amount, 10))
	}

	common.CheckOwnerWitness(vaultconst.ErrUnauthorized, user)

	if len(mint) != interop.Hash160Len {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonInvalidMint)
	}

	ctx := storage.GetContext()
	self := runtime.GetExecutingScriptHash()

	id, _ := deriveVault(self, mint)
	v := readVault(ctx, id)

	linked := deriveAddress(self, v.Mint, v.Nonce)
	if !v.Mint.Equals(mint) || !id.Equals(linked) {
		panic(vaultconst.ErrInvalidAccountLinkage + ": vault record does not match mint")
	}

	userBalance := contract.Call(mint, "balanceOf", contract.ReadStates, user).(int)
	if userBalance < amount {
		panic(vaultconst.ErrInsufficientFunds)
	}

	storage.Put(ctx, vaultconst.PendingDepositKey, id)

	transferred := contract.Call(mint, "transfer", contract.All, user, self, amount, id).(bool)
	if !transferred {
		panic(vaultconst.ErrUnauthorized + ": " + vaultconst.ReasonTransferRefused)
	}

	if storage.Get(ctx, vaultconst.PendingDepositKey) != nil {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonPaymentMissing)
	}

	runtime.Log("funds have been deposited")
	runtime.Notify("Deposit", id, mint, user, amount)
}

// OnNEP17Payment is a callback for NEP-17 compatible contracts. Payments are
// accepted only as a part of Deposit for the vault of the calling token.
//
// GAS minted to the contract as NEO holder reward (nil sender) is accepted
// any time and leaves a pending deposit untouched.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if from == nil && caller.Equals(gas.Hash) {
		runtime.Log("NEO holder reward received")
		return
	}

	ctx := storage.GetContext()

	pending := storage.Get(ctx, vaultconst.PendingDepositKey)
	if pending == nil {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonDirectTransfer)
	}

	id, _ := deriveVault(runtime.GetExecutingScriptHash(), caller)
	if !id.Equals(pending) {
		panic(vaultconst.ErrInvalidAccountLinkage + ": payment from unexpected token")
	}

	storage.Delete(ctx, vaultconst.PendingDepositKey)
}

// Get returns vault record of the mint. It panics if there is no vault for
// the mint.
func Get(mint interop.Hash160) Vault {
	ctx := storage.GetReadOnlyContext()
	id, _ := deriveVault(runtime.GetExecutingScriptHash(), mint)
	return readVault(ctx, id)
}

// DeriveVault returns identity of the mint vault. The vault itself may not
// exist.
func DeriveVault(mint interop.Hash160) Identity {
	if len(mint) != interop.Hash160Len {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonInvalidMint)
	}

	id, nonce := deriveVault(runtime.GetExecutingScriptHash(), mint)
	return Identity{
		Address: id,
		Nonce:   nonce,
	}
}

// Balance returns amount of mint tokens held by the mint vault.
func Balance(mint interop.Hash160) int {
	v := Get(mint)
	return contract.Call(v.Mint, "balanceOf", contract.ReadStates, runtime.GetExecutingScriptHash()).(int)
}

// ListVaults returns iterator over all vault records.
func ListVaults() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, []byte{vaultconst.VaultPrefix}, storage.ValuesOnly|storage.DeserializeValues)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// deriveVault returns the first usable identity going from
// vaultconst.MaxNonce down to zero.
func deriveVault(program, mint interop.Hash160) (interop.Hash160, int) {
	for nonce := vaultconst.MaxNonce; nonce >= 0; nonce-- {
		id := deriveAddress(program, mint, nonce)
		if !id.Equals(program) {
			return id, nonce
		}
	}

	panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonNoIdentity)
}

func deriveAddress(program, mint interop.Hash160, nonce int) interop.Hash160 {
	seed := []byte(vaultconst.Namespace)
	seed = append(seed, program...)
	seed = append(seed, mint...)
	seed = append(seed, convert.ToBytes(nonce)...)

	return interop.Hash160(crypto.Ripemd160([]byte(crypto.Sha256(seed))))
}

func vaultKey(id interop.Hash160) []byte {
	return append([]byte{vaultconst.VaultPrefix}, id...)
}

func readVault(ctx storage.Context, id interop.Hash160) Vault {
	data := common.GetSerialized(ctx, vaultKey(id))
	if data == nil {
		panic(vaultconst.ErrInvalidAccountLinkage + ": " + vaultconst.ReasonVaultNotFound)
	}

	return data.(Vault)
}
