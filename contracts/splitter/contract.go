package splitter

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/splitter-contract/common"
	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
)

// Config groups contract configuration installed on deployment.
type Config struct {
	// Account allowed to change the fee and to withdraw collected fees.
	Owner interop.Hash160
	// Flat amount deducted from every deposit.
	Fee int
	// NEP-17 token contract accepted for deposits.
	Denom interop.Hash160
}

// nolint:unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	if storage.Get(ctx, splitterconst.OwnerKey) != nil {
		panic(splitterconst.ErrAlreadyInitialized)
	}

	args := data.([]any)
	if len(args) != 3 {
		panic("invalid deployment arguments: expected owner, fee and denom")
	}

	cfg := Config{
		Owner: args[0].(interop.Hash160),
		Fee:   args[1].(int),
		Denom: args[2].(interop.Hash160),
	}

	if len(cfg.Owner) != interop.Hash160Len {
		panic("invalid owner account")
	}
	if len(cfg.Denom) != interop.Hash160Len {
		panic("invalid denomination token")
	}
	if cfg.Fee < 0 {
		panic(splitterconst.ErrInvalidFee)
	}

	storage.Put(ctx, splitterconst.OwnerKey, cfg.Owner)
	storage.Put(ctx, splitterconst.DenomKey, cfg.Denom)
	common.PutInt(ctx, splitterconst.FeeKey, cfg.Fee)

	runtime.Notify(splitterconst.InitializeEvent, cfg.Owner, cfg.Fee, cfg.Denom)
	runtime.Log("splitter contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the owner.
func Update(nefFile, manifest []byte, data any) {
	common.CheckOwnerWitness(getConfig(storage.GetReadOnlyContext()).Owner)

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("splitter contract updated")
}

// OnNEP17Payment accepts a deposit and splits it between two recipients
// passed in data as an array of two account hashes. Only tokens of the
// configured denomination are accepted. Fee is moved to the fee pool, the
// rest is split evenly, the unit left by odd remainders is absorbed.
//
// GAS emitted to the contract for the NEO it holds is accepted without a
// split. It stays out of the ledger.
//
// It produces Split notification.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if from == nil && caller.Equals(gas.Hash) {
		return
	}

	ctx := storage.GetContext()
	cfg := getConfig(ctx)

	if !caller.Equals(cfg.Denom) {
		panic(splitterconst.ErrWrongDenom)
	}

	recipientA, recipientB := parseRecipients(data)

	if amount < 0 {
		panic(splitterconst.ErrInvalidAmount)
	}
	if amount < cfg.Fee {
		panic(splitterconst.ErrInsufficientDeposit)
	}

	remainder := amount - cfg.Fee
	share := remainder / 2
	leftover := remainder - 2*share

	credit(ctx, recipientA, share)
	credit(ctx, recipientB, share)

	common.PutInt(ctx, splitterconst.CollectedFeesKey, common.GetInt(ctx, splitterconst.CollectedFeesKey)+cfg.Fee)
	common.PutInt(ctx, splitterconst.AbsorbedKey, common.GetInt(ctx, splitterconst.AbsorbedKey)+leftover)

	runtime.Notify(splitterconst.SplitEvent, from, recipientA, recipientB, amount, share, cfg.Fee)
}

// Withdraw transfers amount of the configured token from the account balance
// back to the account. It can be invoked only by the account owner.
// Returns the remaining balance.
//
// It produces Withdraw notification.
func Withdraw(account interop.Hash160, amount int) int {
	common.CheckAccountWitness(account)

	ctx := storage.GetContext()
	cfg := getConfig(ctx)

	balance := balanceOf(ctx, account)
	if amount > balance {
		panic(splitterconst.ErrInsufficientBalance)
	}
	if amount <= 0 {
		panic(splitterconst.ErrInvalidAmount)
	}

	rest := balance - amount
	common.PutInt(ctx, accountKey(account), rest)

	payout(cfg.Denom, account, amount)

	runtime.Notify(splitterconst.WithdrawEvent, account, amount)

	return rest
}

// WithdrawFees transfers amount of collected fees to the owner. It can be
// invoked only by the owner. Returns the remaining fee pool.
//
// It produces FeeWithdraw notification.
func WithdrawFees(amount int) int {
	ctx := storage.GetContext()
	cfg := getConfig(ctx)

	common.CheckOwnerWitness(cfg.Owner)

	collected := common.GetInt(ctx, splitterconst.CollectedFeesKey)
	if amount > collected {
		panic(splitterconst.ErrInsufficientBalance)
	}
	if amount <= 0 {
		panic(splitterconst.ErrInvalidAmount)
	}

	rest := collected - amount
	common.PutInt(ctx, splitterconst.CollectedFeesKey, rest)

	payout(cfg.Denom, cfg.Owner, amount)

	runtime.Notify(splitterconst.FeeWithdrawEvent, cfg.Owner, amount)

	return rest
}

// SetFee changes the flat fee charged per deposit. It can be invoked only by
// the owner.
//
// It produces FeeUpdate notification.
func SetFee(fee int) {
	ctx := storage.GetContext()

	common.CheckOwnerWitness(getConfig(ctx).Owner)

	if fee < 0 {
		panic(splitterconst.ErrInvalidFee)
	}

	common.PutInt(ctx, splitterconst.FeeKey, fee)

	runtime.Notify(splitterconst.FeeUpdateEvent, fee)
}

// BalanceOf returns withdrawable balance of the account. Unknown accounts
// have zero balance.
func BalanceOf(account interop.Hash160) int {
	return balanceOf(storage.GetReadOnlyContext(), account)
}

// Owner returns the account allowed to change the fee.
func Owner() interop.Hash160 {
	return getConfig(storage.GetReadOnlyContext()).Owner
}

// Fee returns the flat fee charged per deposit.
func Fee() int {
	return getConfig(storage.GetReadOnlyContext()).Fee
}

// Denom returns script hash of the accepted NEP-17 token.
func Denom() interop.Hash160 {
	return getConfig(storage.GetReadOnlyContext()).Denom
}

// CollectedFees returns amount of fees not yet withdrawn by the owner.
func CollectedFees() int {
	return common.GetInt(storage.GetReadOnlyContext(), splitterconst.CollectedFeesKey)
}

// Absorbed returns total amount lost to integer division of deposits.
func Absorbed() int {
	return common.GetInt(storage.GetReadOnlyContext(), splitterconst.AbsorbedKey)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func getConfig(ctx storage.Context) Config {
	owner := storage.Get(ctx, splitterconst.OwnerKey)
	if owner == nil {
		panic(splitterconst.ErrNotInitialized)
	}

	return Config{
		Owner: owner.(interop.Hash160),
		Fee:   common.GetInt(ctx, splitterconst.FeeKey),
		Denom: storage.Get(ctx, splitterconst.DenomKey).(interop.Hash160),
	}
}

func parseRecipients(data any) (interop.Hash160, interop.Hash160) {
	if data == nil {
		panic(splitterconst.ErrInvalidRecipients)
	}

	args := data.([]any)
	if len(args) != 2 {
		panic(splitterconst.ErrInvalidRecipients)
	}

	a := args[0].(interop.Hash160)
	b := args[1].(interop.Hash160)
	if len(a) != interop.Hash160Len || len(b) != interop.Hash160Len {
		panic(splitterconst.ErrInvalidRecipients)
	}

	return a, b
}

func accountKey(account interop.Hash160) []byte {
	return append([]byte{splitterconst.AccountPrefix}, account...)
}

func balanceOf(ctx storage.Context, account interop.Hash160) int {
	if len(account) != interop.Hash160Len {
		return 0
	}

	return common.GetInt(ctx, accountKey(account))
}

func credit(ctx storage.Context, account interop.Hash160, amount int) {
	if amount == 0 {
		return
	}

	key := accountKey(account)
	common.PutInt(ctx, key, common.GetInt(ctx, key)+amount)
}

func payout(denom, to interop.Hash160, amount int) {
	ok := contract.Call(denom, "transfer", contract.All,
		runtime.GetExecutingScriptHash(), to, amount, nil).(bool)
	if !ok {
		panic(splitterconst.ErrPayoutFailed)
	}
}
