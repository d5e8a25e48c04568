package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// Actor groups functions needed to send the deployment transaction and
// to await its acceptance. It's implemented by actor.Actor.
type Actor interface {
	management.Actor

	// Sender returns account paying for the deployment. Deployed contract
	// address depends on it.
	Sender() util.Uint160

	// Wait blocks until the transaction is accepted by the chain or becomes
	// invalid.
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Prm groups parameters of the Splitter contract deployment.
type Prm struct {
	// Writes progress into the log. Optional.
	Logger *zap.Logger

	// Sends the transaction. Required.
	Actor Actor

	// Compiled contract.
	NEF      nef.File
	Manifest manifest.Manifest

	// Account allowed to change the fee and to withdraw collected fees.
	Owner util.Uint160
	// Flat fee charged from every deposit. Must be non-negative.
	Fee *big.Int
	// NEP-17 token accepted as deposits.
	Denom util.Uint160
}

func (x Prm) validate() error {
	switch {
	case x.Actor == nil:
		return errors.New("missing transaction sender")
	case x.Manifest.Name == "":
		return errors.New("missing contract name in manifest")
	case x.Owner.Equals(util.Uint160{}):
		return errors.New("missing owner")
	case x.Fee == nil:
		return errors.New("missing fee")
	case x.Fee.Sign() < 0:
		return fmt.Errorf("negative fee %s", x.Fee)
	case x.Denom.Equals(util.Uint160{}):
		return errors.New("missing denomination token")
	}

	return nil
}

// Address returns address the contract gets when deployed with given Prm.
func Address(prm Prm) util.Uint160 {
	return state.CreateContractHash(prm.Actor.Sender(), prm.NEF.Checksum, prm.Manifest.Name)
}

// Splitter deploys the Splitter contract and returns its address. Splitter
// waits for the deployment transaction to be accepted, it returns earlier
// only if ctx is done.
func Splitter(ctx context.Context, prm Prm) (util.Uint160, error) {
	err := prm.validate()
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid deployment parameters: %w", err)
	}

	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}

	addr := Address(prm)
	l := prm.Logger.With(zap.String("contract", prm.Manifest.Name), zap.Stringer("address", addr))

	l.Info("sending deployment transaction...",
		zap.Stringer("owner", prm.Owner), zap.Stringer("fee", prm.Fee), zap.Stringer("denom", prm.Denom))

	txHash, vub, err := management.New(prm.Actor).Deploy(&prm.NEF, &prm.Manifest, []any{prm.Owner, prm.Fee, prm.Denom})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for acceptance...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	type waitResult struct {
		res *state.AppExecResult
		err error
	}

	// Wait is not interruptible, buffer allows the routine to finish after
	// context is done
	chRes := make(chan waitResult, 1)
	go func() {
		res, err := prm.Actor.Wait(txHash, vub, nil)
		chRes <- waitResult{res, err}
	}()

	var res waitResult

	select {
	case <-ctx.Done():
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), ctx.Err())
	case res = <-chRes:
	}

	if res.err != nil {
		return util.Uint160{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), res.err)
	}

	if res.res.VMState != vmstate.Halt {
		return util.Uint160{}, fmt.Errorf("deployment transaction %s failed: %s", txHash.StringLE(), res.res.FaultException)
	}

	l.Info("contract successfully deployed")

	return addr, nil
}
