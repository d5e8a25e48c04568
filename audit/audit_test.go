package audit

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/splitter-contract/ledger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	contractHash = util.Uint160{0xc0}
	owner        = util.Uint160{0x01}
	denom        = util.Uint160{0xaa}
	sender       = util.Uint160{0x02}
	recipientA   = util.Uint160{0x03}
	recipientB   = util.Uint160{0x04}
)

type testChain struct {
	blocks []*block.Block
	logs   map[util.Uint256]*result.ApplicationLog
	nonce  uint32
}

func newTestChain() *testChain {
	return &testChain{logs: make(map[util.Uint256]*result.ApplicationLog)}
}

func (c *testChain) GetBlockCount() (uint32, error) {
	return uint32(len(c.blocks)), nil
}

func (c *testChain) GetBlockByIndex(index uint32) (*block.Block, error) {
	if int(index) >= len(c.blocks) {
		return nil, errors.New("unknown block")
	}
	return c.blocks[index], nil
}

func (c *testChain) GetApplicationLog(hash util.Uint256, _ *trigger.Type) (*result.ApplicationLog, error) {
	l, ok := c.logs[hash]
	if !ok {
		return nil, errors.New("unknown transaction")
	}
	return l, nil
}

// addBlock appends block with a transaction per execution.
func (c *testChain) addBlock(execs ...state.Execution) {
	b := new(block.Block)

	for i := range execs {
		c.nonce++
		tx := transaction.New([]byte{byte(c.nonce)}, 0)
		tx.Nonce = c.nonce
		b.Transactions = append(b.Transactions, tx)

		c.logs[tx.Hash()] = &result.ApplicationLog{
			Container:     tx.Hash(),
			IsTransaction: true,
			Executions:    []state.Execution{execs[i]},
		}
	}

	c.blocks = append(c.blocks, b)
}

func halt(events ...state.NotificationEvent) state.Execution {
	return state.Execution{Trigger: trigger.Application, VMState: vmstate.Halt, Events: events}
}

func event(name string, items ...any) state.NotificationEvent {
	arr := make([]stackitem.Item, len(items))
	for i := range items {
		switch v := items[i].(type) {
		case util.Uint160:
			arr[i] = stackitem.NewByteArray(v.BytesBE())
		default:
			arr[i] = stackitem.Make(v)
		}
	}
	return state.NotificationEvent{ScriptHash: contractHash, Name: name, Item: stackitem.NewArray(arr)}
}

type testContract struct {
	owner         util.Uint160
	denom         util.Uint160
	fee           int64
	collectedFees int64
	absorbed      int64
	balances      map[util.Uint160]int64
}

func (c *testContract) BalanceOf(acc util.Uint160) (*big.Int, error) {
	return big.NewInt(c.balances[acc]), nil
}

func (c *testContract) Owner() (util.Uint160, error) { return c.owner, nil }
func (c *testContract) Fee() (*big.Int, error) { return big.NewInt(c.fee), nil }
func (c *testContract) Denom() (util.Uint160, error) { return c.denom, nil }
func (c *testContract) CollectedFees() (*big.Int, error) { return big.NewInt(c.collectedFees), nil }
func (c *testContract) Absorbed() (*big.Int, error) { return big.NewInt(c.absorbed), nil }

type testToken int64

func (t testToken) BalanceOf(util.Uint160) (*big.Int, error) {
	return big.NewInt(int64(t)), nil
}

// scriptedHistory returns chain with deposits of 10 and 7 made under fees
// 1 and 2, withdrawal of 3 by recipient A and fee withdrawal of 2.
func scriptedHistory() *testChain {
	c := newTestChain()

	c.addBlock(halt(event("Initialize", owner, 1, denom)))
	c.addBlock(
		halt(
			event("Split", sender, recipientA, recipientB, 10, 4, 1),
			state.NotificationEvent{ScriptHash: util.Uint160{0xff}, Name: "Split", Item: stackitem.NewArray(nil)},
		),
		state.Execution{Trigger: trigger.Application, VMState: vmstate.Fault,
			Events: []state.NotificationEvent{event("Split", sender, recipientA, recipientB, 100, 49, 2)}},
	)
	c.addBlock()
	c.addBlock(halt(event("Withdraw", recipientA, 3), event("FeeUpdate", 2)))
	c.addBlock(halt(event("Split", sender, recipientA, recipientB, 7, 2, 2)), halt(event("FeeWithdraw", owner, 2)))

	return c
}

func matchingContract() *testContract {
	return &testContract{
		owner:         owner,
		denom:         denom,
		fee:           2,
		collectedFees: 1,
		absorbed:      2,
		balances:      map[util.Uint160]int64{recipientA: 3, recipientB: 6},
	}
}

// firstDepositContract returns state of the scripted history after block #1.
func firstDepositContract() *testContract {
	return &testContract{
		owner:         owner,
		denom:         denom,
		fee:           1,
		collectedFees: 1,
		absorbed:      1,
		balances:      map[util.Uint160]int64{recipientA: 4, recipientB: 4},
	}
}

func newTestAuditor(t *testing.T, chain Blockchain) *Auditor {
	a, err := New(Prm{
		Logger:     zaptest.NewLogger(t),
		Blockchain: chain,
		Contract:   contractHash,
		Ledger:     ledger.New(storage.NewMemoryStore()),
	})
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	_, err := New(Prm{Ledger: ledger.New(storage.NewMemoryStore())})
	require.Error(t, err)

	_, err = New(Prm{Blockchain: newTestChain()})
	require.Error(t, err)

	a1 := newTestAuditor(t, newTestChain())
	a2 := newTestAuditor(t, newTestChain())
	require.NotEqual(t, a1.RunID(), a2.RunID())
}

func TestAuditor_Replay(t *testing.T) {
	a := newTestAuditor(t, scriptedHistory())

	require.NoError(t, a.Replay(context.Background(), 0, 0))

	report, err := a.Compare(matchingContract(), testToken(12))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
	require.Equal(t, a.RunID(), report.RunID)
	require.EqualValues(t, 4, report.Height)
	require.Equal(t, 6, report.Events)
	require.EqualValues(t, 12, report.Custody.Int64())
}

func TestAuditor_ReplayByParts(t *testing.T) {
	a := newTestAuditor(t, scriptedHistory())

	require.NoError(t, a.Replay(context.Background(), 0, 1))

	report, err := a.Compare(firstDepositContract(), testToken(10))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)

	require.NoError(t, a.Replay(context.Background(), 2, 4))

	report, err = a.Compare(matchingContract(), nil)
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
}

func TestAuditor_Mismatch(t *testing.T) {
	t.Run("state", func(t *testing.T) {
		a := newTestAuditor(t, scriptedHistory())
		require.NoError(t, a.Replay(context.Background(), 0, 0))

		c := matchingContract()
		c.balances[recipientB] = 5
		c.fee = 3

		report, err := a.Compare(c, testToken(11))
		require.NoError(t, err)
		require.False(t, report.OK())
		require.ElementsMatch(t, []Mismatch{
			{Subject: "fee", Expected: "2", Actual: "3"},
			{Subject: "balance of " + recipientB.StringLE(), Expected: "6", Actual: "5"},
			{Subject: "custody", Expected: "12", Actual: "11"},
		}, report.Mismatches)

		// Reported mismatches are not repeated.
		report, err = a.Compare(matchingContract(), nil)
		require.NoError(t, err)
		require.True(t, report.OK(), report.Mismatches)
	})

	t.Run("history", func(t *testing.T) {
		c := newTestChain()
		c.addBlock(halt(event("Initialize", owner, 1, denom)))
		c.addBlock(halt(
			event("Split", sender, recipientA, recipientB, 10, 5, 1),
			event("Withdraw", recipientB, 100),
		))

		a := newTestAuditor(t, c)
		require.NoError(t, a.Replay(context.Background(), 0, 0))

		report, err := a.Compare(&testContract{
			owner:         owner,
			denom:         denom,
			fee:           1,
			collectedFees: 1,
			absorbed:      1,
			balances:      map[util.Uint160]int64{recipientA: 4, recipientB: 4},
		}, nil)
		require.NoError(t, err)
		require.Len(t, report.Mismatches, 2)
		require.Equal(t, "share of deposit from "+sender.StringLE(), report.Mismatches[0].Subject)
		require.Equal(t, ledger.ErrInsufficientBalance.Error(), report.Mismatches[1].Actual)
		require.Equal(t, 2, report.Events)
	})

	t.Run("not initialized", func(t *testing.T) {
		a := newTestAuditor(t, scriptedHistory())
		require.NoError(t, a.Replay(context.Background(), 1, 0))

		_, err := a.Compare(matchingContract(), nil)
		require.ErrorIs(t, err, ledger.ErrNotInitialized)
	})
}

func TestAuditor_ReplayErrors(t *testing.T) {
	a := newTestAuditor(t, scriptedHistory())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, a.Replay(ctx, 0, 0), context.Canceled)

	require.Error(t, a.Replay(context.Background(), 3, 2))
	require.Error(t, a.Replay(context.Background(), 0, 10))
	require.EqualValues(t, 5, a.Next())

	// Replayed blocks are not applied twice.
	require.Error(t, a.Replay(context.Background(), 0, 4))
	require.Error(t, a.Replay(context.Background(), 4, 4))

	report, err := a.Compare(matchingContract(), testToken(12))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
	require.Equal(t, 6, report.Events)

	empty := newTestAuditor(t, newTestChain())
	require.NoError(t, empty.Replay(context.Background(), 0, 0))
}

func TestAuditor_ReplayResume(t *testing.T) {
	c := scriptedHistory()

	missing := c.blocks[1].Transactions[1].Hash()
	appLog := c.logs[missing]
	delete(c.logs, missing)

	a := newTestAuditor(t, c)

	require.Error(t, a.Replay(context.Background(), 0, 0))
	require.EqualValues(t, 1, a.Next())

	// Block #1 is not applied partially.
	report, err := a.Compare(&testContract{owner: owner, denom: denom, fee: 1}, testToken(0))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
	require.Equal(t, 1, report.Events)
	require.EqualValues(t, 0, report.Height)

	c.logs[missing] = appLog

	require.NoError(t, a.Replay(context.Background(), a.Next(), 1))

	report, err = a.Compare(firstDepositContract(), testToken(10))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
	require.Equal(t, 2, report.Events)

	require.NoError(t, a.Replay(context.Background(), a.Next(), 0))

	report, err = a.Compare(matchingContract(), testToken(12))
	require.NoError(t, err)
	require.True(t, report.OK(), report.Mismatches)
	require.EqualValues(t, 5, a.Next())
}
