package ledger

import (
	"errors"
	"math/big"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testDenom = "sei"

func randomAccount() util.Uint160 {
	var u util.Uint160
	rand.Read(u[:]) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return u
}

func newTestLedger(t *testing.T, fee int64) (*Ledger, util.Uint160) {
	l := New(storage.NewMemoryStore(), WithLogger(zaptest.NewLogger(t)))
	owner := randomAccount()
	require.NoError(t, l.Instantiate(owner, big.NewInt(fee), testDenom))
	return l, owner
}

func coin(n int64) Coin {
	return Coin{Amount: big.NewInt(n), Denom: testDenom}
}

func requireBalance(t *testing.T, l *Ledger, acc util.Uint160, expected int64) {
	b, err := l.Balance(acc)
	require.NoError(t, err)
	require.EqualValues(t, expected, b.Int64())
}

func requireInt(t *testing.T, expected int64, n *big.Int, err error) {
	require.NoError(t, err)
	require.EqualValues(t, expected, n.Int64())
}

func TestLedger_Instantiate(t *testing.T) {
	l := New(storage.NewMemoryStore())

	_, err := l.Config()
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = l.Transfer(randomAccount(), randomAccount(), randomAccount(), coin(10))
	require.ErrorIs(t, err, ErrNotInitialized)

	owner := randomAccount()
	require.ErrorIs(t, l.Instantiate(owner, big.NewInt(-1), testDenom), ErrInvalidFee)
	require.ErrorIs(t, l.Instantiate(owner, nil, testDenom), ErrInvalidFee)

	require.NoError(t, l.Instantiate(owner, big.NewInt(3), testDenom))
	require.ErrorIs(t, l.Instantiate(randomAccount(), big.NewInt(0), "other"), ErrAlreadyInitialized)

	o, err := l.Owner()
	require.NoError(t, err)
	require.Equal(t, owner, o)

	fee, err := l.Fee()
	requireInt(t, 3, fee, err)

	denom, err := l.Denom()
	require.NoError(t, err)
	require.Equal(t, testDenom, denom)
}

func TestLedger_SetFee(t *testing.T) {
	l, owner := newTestLedger(t, 1)

	require.ErrorIs(t, l.SetFee(randomAccount(), big.NewInt(5)), ErrUnauthorized)
	fee, err := l.Fee()
	requireInt(t, 1, fee, err)

	require.ErrorIs(t, l.SetFee(owner, big.NewInt(-5)), ErrInvalidFee)
	fee, err = l.Fee()
	requireInt(t, 1, fee, err)

	require.NoError(t, l.SetFee(owner, big.NewInt(0)))
	fee, err = l.Fee()
	requireInt(t, 0, fee, err)

	require.NoError(t, l.SetFee(owner, big.NewInt(7)))
	fee, err = l.Fee()
	requireInt(t, 7, fee, err)
}

func TestLedger_Transfer(t *testing.T) {
	for _, tc := range []struct {
		name            string
		fee, deposit    int64
		share, absorbed int64
		sameRecipient   bool
	}{
		{name: "odd remainder", fee: 1, deposit: 10, share: 4, absorbed: 1},
		{name: "zero fee", fee: 0, deposit: 7, share: 3, absorbed: 1},
		{name: "even remainder", fee: 2, deposit: 100, share: 49},
		{name: "deposit equals fee", fee: 5, deposit: 5},
		{name: "single unit", fee: 0, deposit: 1, absorbed: 1},
		{name: "same recipient", fee: 0, deposit: 10, share: 5, sameRecipient: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l, _ := newTestLedger(t, tc.fee)

			a, b := randomAccount(), randomAccount()
			if tc.sameRecipient {
				b = a
			}

			res, err := l.Transfer(randomAccount(), a, b, coin(tc.deposit))
			require.NoError(t, err)
			require.EqualValues(t, tc.share, res.RecipientACredit.Int64())
			require.EqualValues(t, tc.share, res.RecipientBCredit.Int64())
			require.EqualValues(t, tc.fee, res.FeeCharged.Int64())
			require.EqualValues(t, tc.absorbed, res.Absorbed.Int64())

			if tc.sameRecipient {
				requireBalance(t, l, a, 2*tc.share)
			} else {
				requireBalance(t, l, a, tc.share)
				requireBalance(t, l, b, tc.share)
			}

			fees, err := l.CollectedFees()
			requireInt(t, tc.fee, fees, err)

			absorbed, err := l.Absorbed()
			requireInt(t, tc.absorbed, absorbed, err)

			custody, err := l.Custody()
			requireInt(t, tc.deposit, custody, err)
		})
	}
}

func TestLedger_TransferFailures(t *testing.T) {
	l, _ := newTestLedger(t, 5)
	a, b := randomAccount(), randomAccount()

	_, err := l.Transfer(randomAccount(), a, b, coin(4))
	require.ErrorIs(t, err, ErrInsufficientDeposit)

	_, err = l.Transfer(randomAccount(), a, b, Coin{Amount: big.NewInt(100), Denom: "other"})
	require.ErrorIs(t, err, ErrWrongDenom)

	_, err = l.Transfer(randomAccount(), a, b, coin(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Transfer(randomAccount(), a, b, Coin{Denom: testDenom})
	require.ErrorIs(t, err, ErrInvalidAmount)

	requireBalance(t, l, a, 0)
	requireBalance(t, l, b, 0)

	custody, err := l.Custody()
	requireInt(t, 0, custody, err)
}

func TestLedger_Withdraw(t *testing.T) {
	l, _ := newTestLedger(t, 0)
	a, b := randomAccount(), randomAccount()

	_, err := l.Transfer(randomAccount(), a, b, coin(10))
	require.NoError(t, err)

	_, err = l.Withdraw(a, big.NewInt(6))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	requireBalance(t, l, a, 5)

	_, err = l.Withdraw(a, big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Withdraw(a, big.NewInt(-2))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Withdraw(a, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	requireBalance(t, l, a, 5)

	_, err = l.Withdraw(randomAccount(), big.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	res, err := l.Withdraw(a, big.NewInt(2))
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Remaining.Int64())
	require.Equal(t, a, res.Payout.To)
	require.EqualValues(t, 2, res.Payout.Amount.Int64())
	require.Equal(t, testDenom, res.Payout.Denom)

	res, err = l.Withdraw(a, big.NewInt(3))
	require.NoError(t, err)
	require.Zero(t, res.Remaining.Sign())

	var accounts []util.Uint160
	require.NoError(t, l.IterateBalances(func(acc util.Uint160, _ *big.Int) bool {
		accounts = append(accounts, acc)
		return true
	}))
	require.Equal(t, []util.Uint160{b}, accounts)
}

func TestLedger_WithdrawFees(t *testing.T) {
	l, owner := newTestLedger(t, 3)

	_, err := l.Transfer(randomAccount(), randomAccount(), randomAccount(), coin(10))
	require.NoError(t, err)
	_, err = l.Transfer(randomAccount(), randomAccount(), randomAccount(), coin(3))
	require.NoError(t, err)

	_, err = l.WithdrawFees(randomAccount(), big.NewInt(1))
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = l.WithdrawFees(owner, big.NewInt(7))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = l.WithdrawFees(owner, big.NewInt(0))
	require.ErrorIs(t, err, ErrInvalidAmount)

	res, err := l.WithdrawFees(owner, big.NewInt(4))
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Remaining.Int64())
	require.Equal(t, owner, res.Payout.To)

	fees, err := l.CollectedFees()
	requireInt(t, 2, fees, err)

	custody, err := l.Custody()
	requireInt(t, 13-4, custody, err)
}

func TestLedger_Conservation(t *testing.T) {
	l, owner := newTestLedger(t, 2)
	r := rand.New(rand.NewSource(42))

	accounts := make([]util.Uint160, 5)
	for i := range accounts {
		accounts[i] = randomAccount()
	}

	var deposited, paidOut int64

	for i := 0; i < 500; i++ {
		switch r.Intn(4) {
		case 0, 1:
			amount := r.Int63n(50)
			a, b := accounts[r.Intn(len(accounts))], accounts[r.Intn(len(accounts))]
			res, err := l.Transfer(randomAccount(), a, b, coin(amount))
			if amount < 2 {
				require.ErrorIs(t, err, ErrInsufficientDeposit)
				continue
			}
			require.NoError(t, err)
			require.Equal(t, res.RecipientACredit, res.RecipientBCredit)
			require.EqualValues(t, (amount-2)/2, res.RecipientACredit.Int64())
			deposited += amount
		case 2:
			acc := accounts[r.Intn(len(accounts))]
			before, err := l.Balance(acc)
			require.NoError(t, err)

			amount := r.Int63n(30)
			res, err := l.Withdraw(acc, big.NewInt(amount))
			switch {
			case amount > before.Int64():
				require.ErrorIs(t, err, ErrInsufficientBalance)
			case amount == 0:
				require.ErrorIs(t, err, ErrInvalidAmount)
			default:
				require.NoError(t, err)
			}
			if err != nil {
				requireBalance(t, l, acc, before.Int64())
				continue
			}
			paidOut += res.Payout.Amount.Int64()
		case 3:
			amount := r.Int63n(5) + 1
			res, err := l.WithdrawFees(owner, big.NewInt(amount))
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientBalance)
				continue
			}
			paidOut += res.Payout.Amount.Int64()
		}

		var balances = new(big.Int)
		require.NoError(t, l.IterateBalances(func(_ util.Uint160, b *big.Int) bool {
			require.Positive(t, b.Sign())
			balances.Add(balances, b)
			return true
		}))

		fees, err := l.CollectedFees()
		require.NoError(t, err)
		absorbed, err := l.Absorbed()
		require.NoError(t, err)

		balances.Add(balances, fees)
		balances.Add(balances, absorbed)
		require.EqualValues(t, deposited-paidOut, balances.Int64())

		custody, err := l.Custody()
		requireInt(t, deposited-paidOut, custody, err)
	}
}

type failingStore struct {
	*storage.MemoryStore
	fail bool
}

var errStoreUnavailable = errors.New("store unavailable")

func (s *failingStore) PutChangeSet(puts map[string][]byte, stor map[string][]byte) error {
	if s.fail {
		return errStoreUnavailable
	}
	return s.MemoryStore.PutChangeSet(puts, stor)
}

func TestLedger_Atomicity(t *testing.T) {
	st := &failingStore{MemoryStore: storage.NewMemoryStore()}
	l := New(st)

	owner := randomAccount()
	require.NoError(t, l.Instantiate(owner, big.NewInt(1), testDenom))

	a, b := randomAccount(), randomAccount()
	_, err := l.Transfer(randomAccount(), a, b, coin(11))
	require.NoError(t, err)

	st.fail = true

	_, err = l.Transfer(randomAccount(), a, b, coin(11))
	require.ErrorIs(t, err, errStoreUnavailable)

	_, err = l.Withdraw(a, big.NewInt(5))
	require.ErrorIs(t, err, errStoreUnavailable)

	require.ErrorIs(t, l.SetFee(owner, big.NewInt(2)), errStoreUnavailable)

	st.fail = false

	requireBalance(t, l, a, 5)
	requireBalance(t, l, b, 5)

	fee, err := l.Fee()
	requireInt(t, 1, fee, err)

	fees, err := l.CollectedFees()
	requireInt(t, 1, fees, err)
}

func TestLedger_BoltDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.bolt")
	cfg := dbconfig.DBConfiguration{
		Type:          dbconfig.BoltDB,
		BoltDBOptions: dbconfig.BoltDBOptions{FilePath: path},
	}

	st, err := OpenStore(cfg)
	require.NoError(t, err)

	l := New(st)
	owner, a, b := randomAccount(), randomAccount(), randomAccount()
	require.NoError(t, l.Instantiate(owner, big.NewInt(1), testDenom))
	_, err = l.Transfer(randomAccount(), a, b, coin(21))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = OpenStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	l = New(st)
	requireBalance(t, l, a, 10)
	requireBalance(t, l, b, 10)

	o, err := l.Owner()
	require.NoError(t, err)
	require.Equal(t, owner, o)
}

func TestOpenStore(t *testing.T) {
	st, err := OpenStore(dbconfig.DBConfiguration{})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = OpenStore(dbconfig.DBConfiguration{Type: "unknown"})
	require.Error(t, err)
}
