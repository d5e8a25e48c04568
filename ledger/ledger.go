package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Coin is an amount of some denomination attached to a deposit.
type Coin struct {
	Amount *big.Int
	Denom  string
}

// TransferResult describes how a deposit was distributed.
type TransferResult struct {
	RecipientACredit *big.Int
	RecipientBCredit *big.Int
	FeeCharged       *big.Int
	// Unit left by an odd remainder, neither credited nor refunded.
	Absorbed *big.Int
}

// Payout is a value transfer the host must execute after successful
// withdrawal.
type Payout struct {
	To     util.Uint160
	Amount *big.Int
	Denom  string
}

// WithdrawResult is returned by successful withdrawals.
type WithdrawResult struct {
	// Balance (or fee pool) left after withdrawal.
	Remaining *big.Int
	Payout    Payout
}

// Ledger is a fee-splitting custodial ledger of a single denomination.
type Ledger struct {
	mtx   sync.Mutex
	store storage.Store
	log   *zap.Logger
}

// Option configures Ledger.
type Option func(*Ledger)

// WithLogger sets logger Ledger reports applied operations to.
func WithLogger(l *zap.Logger) Option {
	return func(x *Ledger) {
		x.log = l
	}
}

// New returns Ledger keeping its state in the given store.
func New(st storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: st,
		log:   zap.NewNop(),
	}

	for i := range opts {
		opts[i](l)
	}

	return l
}

// update runs f over changes staged on top of the backing store and
// persists them only if f succeeds.
func (l *Ledger) update(f func(s Store) error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	cache := storage.NewMemCachedStore(l.store)

	err := f(cache)
	if err != nil {
		return err
	}

	_, err = cache.Persist()
	if err != nil {
		return fmt.Errorf("persist changes: %w", err)
	}

	return nil
}

func (l *Ledger) view(f func(s Store) error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return f(storage.NewMemCachedStore(l.store))
}

// Instantiate installs ledger configuration. It can be done only once.
func (l *Ledger) Instantiate(owner util.Uint160, fee *big.Int, denom string) error {
	err := l.update(func(s Store) error {
		return instantiate(s, Config{Owner: owner, Fee: fee, Denom: denom})
	})
	if err != nil {
		return err
	}

	l.log.Info("ledger initialized",
		zap.Stringer("owner", owner), zap.Stringer("fee", fee), zap.String("denom", denom))

	return nil
}

// SetFee changes the fee. The caller must be the owner.
func (l *Ledger) SetFee(caller util.Uint160, fee *big.Int) error {
	err := l.update(func(s Store) error {
		_, err := setFee(s, caller, fee)
		return err
	})
	if err != nil {
		return err
	}

	l.log.Info("fee updated", zap.Stringer("fee", fee))

	return nil
}

// Config returns current ledger configuration.
func (l *Ledger) Config() (Config, error) {
	var cfg Config

	err := l.view(func(s Store) error {
		var err error
		cfg, err = loadConfig(s)
		return err
	})

	return cfg, err
}

// Owner returns the owner account.
func (l *Ledger) Owner() (util.Uint160, error) {
	cfg, err := l.Config()
	return cfg.Owner, err
}

// Fee returns the flat fee charged per deposit.
func (l *Ledger) Fee() (*big.Int, error) {
	cfg, err := l.Config()
	return cfg.Fee, err
}

// Denom returns the accepted denomination.
func (l *Ledger) Denom() (string, error) {
	cfg, err := l.Config()
	return cfg.Denom, err
}

// Transfer charges the fee from the deposit and credits both recipients
// with a half of the rest each. The unit left by an odd rest is absorbed.
// Recipients may be the same account.
func (l *Ledger) Transfer(sender, recipientA, recipientB util.Uint160, deposit Coin) (TransferResult, error) {
	var res TransferResult

	err := l.update(func(s Store) error {
		var err error
		res, err = transfer(s, recipientA, recipientB, deposit)
		return err
	})
	if err != nil {
		return res, err
	}

	l.log.Debug("deposit split",
		zap.Stringer("from", sender),
		zap.Stringer("recipient_a", recipientA),
		zap.Stringer("recipient_b", recipientB),
		zap.Stringer("deposit", deposit.Amount),
		zap.Stringer("share", res.RecipientACredit),
		zap.Stringer("fee", res.FeeCharged),
		zap.Stringer("absorbed", res.Absorbed))

	return res, nil
}

// Withdraw debits the caller balance and returns payout the host must make.
func (l *Ledger) Withdraw(caller util.Uint160, amount *big.Int) (WithdrawResult, error) {
	var res WithdrawResult

	err := l.update(func(s Store) error {
		var err error
		res, err = withdraw(s, caller, amount)
		return err
	})
	if err != nil {
		return res, err
	}

	l.log.Debug("balance withdrawn",
		zap.Stringer("account", caller), zap.Stringer("amount", amount), zap.Stringer("remaining", res.Remaining))

	return res, nil
}

// WithdrawFees debits the fee pool and returns payout to the owner. The
// caller must be the owner.
func (l *Ledger) WithdrawFees(caller util.Uint160, amount *big.Int) (WithdrawResult, error) {
	var res WithdrawResult

	err := l.update(func(s Store) error {
		var err error
		res, err = withdrawFees(s, caller, amount)
		return err
	})
	if err != nil {
		return res, err
	}

	l.log.Debug("fees withdrawn", zap.Stringer("amount", amount), zap.Stringer("remaining", res.Remaining))

	return res, nil
}

// Balance returns withdrawable balance of the account, zero for unknown
// accounts.
func (l *Ledger) Balance(acc util.Uint160) (*big.Int, error) {
	return l.readInt(accountKey(acc))
}

// CollectedFees returns amount of fees not yet withdrawn by the owner.
func (l *Ledger) CollectedFees() (*big.Int, error) {
	return l.readInt(collectedFeesKey)
}

// Absorbed returns total amount lost to the even split of deposits.
func (l *Ledger) Absorbed() (*big.Int, error) {
	return l.readInt(absorbedKey)
}

// IterateBalances calls f for every non-zero balance until f returns false.
func (l *Ledger) IterateBalances(f func(acc util.Uint160, balance *big.Int) bool) error {
	return l.view(func(s Store) error {
		return seekAccounts(s, f)
	})
}

// Custody returns total amount the ledger holds: all balances, collected
// fees and absorbed units. It equals deposits minus payouts.
func (l *Ledger) Custody() (*big.Int, error) {
	var total = new(big.Int)

	err := l.view(func(s Store) error {
		err := seekAccounts(s, func(_ util.Uint160, balance *big.Int) bool {
			total.Add(total, balance)
			return true
		})
		if err != nil {
			return err
		}

		for _, key := range [][]byte{collectedFeesKey, absorbedKey} {
			n, err := getInt(s, key)
			if err != nil {
				return err
			}
			total.Add(total, n)
		}

		return nil
	})

	return total, err
}

func (l *Ledger) readInt(key []byte) (*big.Int, error) {
	var n *big.Int

	err := l.view(func(s Store) error {
		var err error
		n, err = getInt(s, key)
		return err
	})

	return n, err
}

func transfer(s Store, recipientA, recipientB util.Uint160, deposit Coin) (TransferResult, error) {
	var res TransferResult

	cfg, err := loadConfig(s)
	if err != nil {
		return res, err
	}

	if deposit.Denom != cfg.Denom {
		return res, ErrWrongDenom
	}
	if deposit.Amount == nil || deposit.Amount.Sign() < 0 {
		return res, ErrInvalidAmount
	}
	if deposit.Amount.Cmp(cfg.Fee) < 0 {
		return res, ErrInsufficientDeposit
	}

	remainder := new(big.Int).Sub(deposit.Amount, cfg.Fee)
	share, leftover := new(big.Int).QuoRem(remainder, big.NewInt(2), new(big.Int))

	for _, acc := range []util.Uint160{recipientA, recipientB} {
		_, err = addInt(s, accountKey(acc), share)
		if err != nil {
			return res, err
		}
	}

	_, err = addInt(s, collectedFeesKey, cfg.Fee)
	if err != nil {
		return res, err
	}

	_, err = addInt(s, absorbedKey, leftover)
	if err != nil {
		return res, err
	}

	return TransferResult{
		RecipientACredit: share,
		RecipientBCredit: new(big.Int).Set(share),
		FeeCharged:       cfg.Fee,
		Absorbed:         leftover,
	}, nil
}

func withdraw(s Store, caller util.Uint160, amount *big.Int) (WithdrawResult, error) {
	var res WithdrawResult

	cfg, err := loadConfig(s)
	if err != nil {
		return res, err
	}

	res.Remaining, err = debit(s, accountKey(caller), amount)
	if err != nil {
		return res, err
	}

	res.Payout = Payout{To: caller, Amount: new(big.Int).Set(amount), Denom: cfg.Denom}

	return res, nil
}

func withdrawFees(s Store, caller util.Uint160, amount *big.Int) (WithdrawResult, error) {
	var res WithdrawResult

	cfg, err := loadConfig(s)
	if err != nil {
		return res, err
	}

	if !isOwner(cfg, caller) {
		return res, ErrUnauthorized
	}

	res.Remaining, err = debit(s, collectedFeesKey, amount)
	if err != nil {
		return res, err
	}

	res.Payout = Payout{To: cfg.Owner, Amount: new(big.Int).Set(amount), Denom: cfg.Denom}

	return res, nil
}

func debit(s Store, key []byte, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return nil, ErrInvalidAmount
	}

	balance, err := getInt(s, key)
	if err != nil {
		return nil, err
	}

	if amount.Cmp(balance) > 0 {
		return nil, ErrInsufficientBalance
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	balance.Sub(balance, amount)
	putInt(s, key, balance)

	return balance, nil
}
