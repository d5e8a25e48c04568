package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
)

// CheckOwnerWitness checks witness of the passed owner account.
// It panics with splitterconst.ErrUnauthorized message on fail.
func CheckOwnerWitness(owner interop.Hash160) {
	checkWitnessWithPanic(owner, splitterconst.ErrUnauthorized)
}

// CheckAccountWitness checks witness of the account whose balance is being
// spent. It panics with splitterconst.ErrUnauthorized message on fail.
func CheckAccountWitness(account interop.Hash160) {
	if len(account) != interop.Hash160Len {
		panic(splitterconst.ErrUnauthorized)
	}
	checkWitnessWithPanic(account, splitterconst.ErrUnauthorized)
}

func checkWitnessWithPanic(caller interop.Hash160, panicMsg string) {
	if !runtime.CheckWitness(caller) {
		panic(panicMsg)
	}
}
