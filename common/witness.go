package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

var (
	// ErrOwnerWitnessFailed appears when the method must be called by an
	// owner of some assets but was not.
	ErrOwnerWitnessFailed = "owner witness check failed"
	// ErrPayerWitnessFailed appears when the method allocates storage on
	// behalf of an account that did not sign the transaction.
	ErrPayerWitnessFailed = "payer witness check failed"
	// ErrCommitteeWitnessFailed appears when the method must be called by
	// the committee but was not.
	ErrCommitteeWitnessFailed = "committee witness check failed"
)

// CheckOwnerWitness checks witness of the passed caller.
// It panics with prefix followed by ErrOwnerWitnessFailed message on fail.
func CheckOwnerWitness(prefix string, caller interop.Hash160) {
	checkWitnessWithPanic(caller, prefix+": "+ErrOwnerWitnessFailed)
}

// CheckPayerWitness is like CheckOwnerWitness for the account paying for
// the allocated storage.
func CheckPayerWitness(prefix string, payer interop.Hash160) {
	checkWitnessWithPanic(payer, prefix+": "+ErrPayerWitnessFailed)
}

func checkWitnessWithPanic(caller interop.Hash160, panicMsg string) {
	if !runtime.CheckWitness(caller) {
		panic(panicMsg)
	}
}
