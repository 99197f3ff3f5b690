package token

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	symbol   = "VLT"
	decimals = 8

	ownerKey      = 'o'
	supplyKey     = 's'
	balancePrefix = 'b'
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	tx := runtime.GetScriptContainer()
	storage.Put(storage.GetContext(), ownerKey, tx.Sender)
}

func Symbol() string {
	return symbol
}

func Decimals() int {
	return decimals
}

func TotalSupply() int {
	return getInt(storage.GetReadOnlyContext(), supplyKey)
}

func BalanceOf(account interop.Hash160) int {
	if len(account) != interop.Hash160Len {
		panic("invalid account")
	}
	return getInt(storage.GetReadOnlyContext(), balanceKey(account))
}

func Transfer(from, to interop.Hash160, amount int, data any) bool {
	if len(from) != interop.Hash160Len || len(to) != interop.Hash160Len {
		panic("invalid account")
	}
	if amount < 0 {
		panic("negative amount")
	}

	if !runtime.CheckWitness(from) && !from.Equals(runtime.GetCallingScriptHash()) {
		return false
	}

	ctx := storage.GetContext()
	fromBalance := getInt(ctx, balanceKey(from))
	if fromBalance < amount {
		return false
	}

	if amount != 0 && !from.Equals(to) {
		storage.Put(ctx, balanceKey(from), fromBalance-amount)
		storage.Put(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)
	}

	runtime.Notify("Transfer", from, to, amount)

	if management.GetContract(to) != nil {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}

	return true
}

// Mint issues new tokens to the account. It can be invoked only by the
// deployer.
func Mint(to interop.Hash160, amount int) {
	ctx := storage.GetContext()

	owner := storage.Get(ctx, ownerKey).(interop.Hash160)
	if !runtime.CheckWitness(owner) {
		panic("only owner can mint")
	}
	if amount <= 0 {
		panic("non-positive amount")
	}

	storage.Put(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)
	storage.Put(ctx, supplyKey, getInt(ctx, supplyKey)+amount)

	var from interop.Hash160
	runtime.Notify("Transfer", from, to, amount)
}

func balanceKey(account interop.Hash160) []byte {
	return append([]byte{balancePrefix}, account...)
}

func getInt(ctx storage.Context, key any) int {
	v := storage.Get(ctx, key)
	if v == nil {
		return 0
	}
	return v.(int)
}
