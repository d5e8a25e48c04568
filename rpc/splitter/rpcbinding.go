// Package splitter contains RPC wrappers for Splitter contract.
package splitter

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
)

// InitializeEvent represents "Initialize" event emitted by the contract.
type InitializeEvent struct {
	Owner util.Uint160
	Fee   *big.Int
	Denom util.Uint160
}

// SplitEvent represents "Split" event emitted by the contract.
type SplitEvent struct {
	From       util.Uint160
	RecipientA util.Uint160
	RecipientB util.Uint160
	Deposit    *big.Int
	Share      *big.Int
	Fee        *big.Int
}

// WithdrawEvent represents "Withdraw" event emitted by the contract.
type WithdrawEvent struct {
	Account util.Uint160
	Amount  *big.Int
}

// FeeWithdrawEvent represents "FeeWithdraw" event emitted by the contract.
type FeeWithdrawEvent struct {
	Owner  util.Uint160
	Amount *big.Int
}

// FeeUpdateEvent represents "FeeUpdate" event emitted by the contract.
type FeeUpdateEvent struct {
	Fee *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
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

// Hash returns hash of the contract the reader is bound to.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// BalanceOf invokes `balanceOf` method of contract.
func (c *ContractReader) BalanceOf(account util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "balanceOf", account))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// Fee invokes `fee` method of contract.
func (c *ContractReader) Fee() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "fee"))
}

// Denom invokes `denom` method of contract.
func (c *ContractReader) Denom() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "denom"))
}

// CollectedFees invokes `collectedFees` method of contract.
func (c *ContractReader) CollectedFees() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "collectedFees"))
}

// Absorbed invokes `absorbed` method of contract.
func (c *ContractReader) Absorbed() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "absorbed"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// SetFee creates a transaction invoking `setFee` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetFee(fee *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setFee", fee)
}

// SetFeeTransaction creates a transaction invoking `setFee` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetFeeTransaction(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setFee", fee)
}

// SetFeeUnsigned creates a transaction invoking `setFee` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetFeeUnsigned(fee *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setFee", nil, fee)
}

// Withdraw creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Withdraw(account util.Uint160, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdraw", account, amount)
}

// WithdrawTransaction creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawTransaction(account util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdraw", account, amount)
}

// WithdrawUnsigned creates a transaction invoking `withdraw` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawUnsigned(account util.Uint160, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdraw", nil, account, amount)
}

// WithdrawFees creates a transaction invoking `withdrawFees` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) WithdrawFees(amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdrawFees", amount)
}

// WithdrawFeesTransaction creates a transaction invoking `withdrawFees` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawFeesTransaction(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdrawFees", amount)
}

// WithdrawFeesUnsigned creates a transaction invoking `withdrawFees` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawFeesUnsigned(amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdrawFees", nil, amount)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// InitializeEventsFromApplicationLog retrieves a set of all emitted events
// with "Initialize" name from the provided [result.ApplicationLog].
func InitializeEventsFromApplicationLog(log *result.ApplicationLog) ([]*InitializeEvent, error) {
	var res []*InitializeEvent
	err := eventsFromApplicationLog(log, splitterconst.InitializeEvent, func(item *stackitem.Array) error {
		event := new(InitializeEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to InitializeEvent or
// returns an error if it's not possible to do to so.
func (e *InitializeEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Fee, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Fee: %w", err)
	}

	e.Denom, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field Denom: %w", err)
	}

	return nil
}

// SplitEventsFromApplicationLog retrieves a set of all emitted events
// with "Split" name from the provided [result.ApplicationLog].
func SplitEventsFromApplicationLog(log *result.ApplicationLog) ([]*SplitEvent, error) {
	var res []*SplitEvent
	err := eventsFromApplicationLog(log, splitterconst.SplitEvent, func(item *stackitem.Array) error {
		event := new(SplitEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to SplitEvent or
// returns an error if it's not possible to do to so.
func (e *SplitEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 6)
	if err != nil {
		return err
	}

	e.From, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field From: %w", err)
	}

	e.RecipientA, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field RecipientA: %w", err)
	}

	e.RecipientB, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field RecipientB: %w", err)
	}

	e.Deposit, err = arr[3].TryInteger()
	if err != nil {
		return fmt.Errorf("field Deposit: %w", err)
	}

	e.Share, err = arr[4].TryInteger()
	if err != nil {
		return fmt.Errorf("field Share: %w", err)
	}

	e.Fee, err = arr[5].TryInteger()
	if err != nil {
		return fmt.Errorf("field Fee: %w", err)
	}

	return nil
}

// WithdrawEventsFromApplicationLog retrieves a set of all emitted events
// with "Withdraw" name from the provided [result.ApplicationLog].
func WithdrawEventsFromApplicationLog(log *result.ApplicationLog) ([]*WithdrawEvent, error) {
	var res []*WithdrawEvent
	err := eventsFromApplicationLog(log, splitterconst.WithdrawEvent, func(item *stackitem.Array) error {
		event := new(WithdrawEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to WithdrawEvent or
// returns an error if it's not possible to do to so.
func (e *WithdrawEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Account, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Account: %w", err)
	}

	e.Amount, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// FeeWithdrawEventsFromApplicationLog retrieves a set of all emitted events
// with "FeeWithdraw" name from the provided [result.ApplicationLog].
func FeeWithdrawEventsFromApplicationLog(log *result.ApplicationLog) ([]*FeeWithdrawEvent, error) {
	var res []*FeeWithdrawEvent
	err := eventsFromApplicationLog(log, splitterconst.FeeWithdrawEvent, func(item *stackitem.Array) error {
		event := new(FeeWithdrawEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to FeeWithdrawEvent or
// returns an error if it's not possible to do to so.
func (e *FeeWithdrawEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Amount, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// FeeUpdateEventsFromApplicationLog retrieves a set of all emitted events
// with "FeeUpdate" name from the provided [result.ApplicationLog].
func FeeUpdateEventsFromApplicationLog(log *result.ApplicationLog) ([]*FeeUpdateEvent, error) {
	var res []*FeeUpdateEvent
	err := eventsFromApplicationLog(log, splitterconst.FeeUpdateEvent, func(item *stackitem.Array) error {
		event := new(FeeUpdateEvent)
		if err := event.FromStackItem(item); err != nil {
			return err
		}
		res = append(res, event)
		return nil
	})
	return res, err
}

// FromStackItem converts provided [stackitem.Array] to FeeUpdateEvent or
// returns an error if it's not possible to do to so.
func (e *FeeUpdateEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 1)
	if err != nil {
		return err
	}

	e.Fee, err = arr[0].TryInteger()
	if err != nil {
		return fmt.Errorf("field Fee: %w", err)
	}

	return nil
}

func eventsFromApplicationLog(log *result.ApplicationLog, name string, f func(*stackitem.Array) error) error {
	if log == nil {
		return errors.New("nil application log")
	}

	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != name {
				continue
			}
			err := f(e.Item)
			if err != nil {
				return fmt.Errorf("failed to deserialize %sEvent from stackitem (execution #%d, event #%d): %w", name, i, j, err)
			}
		}
	}

	return nil
}

func eventFields(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
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
