package audit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
	"github.com/nspcc-dev/splitter-contract/ledger"
	"github.com/nspcc-dev/splitter-contract/rpc/splitter"
	"go.uber.org/zap"
)

// Blockchain provides history of the Neo blockchain the contract lives in.
// It's implemented by rpcclient.Client.
type Blockchain interface {
	// GetBlockCount returns number of blocks in the chain.
	GetBlockCount() (uint32, error)

	// GetBlockByIndex returns block by its height.
	GetBlockByIndex(index uint32) (*block.Block, error)

	// GetApplicationLog returns execution results of the transaction.
	GetApplicationLog(hash util.Uint256, trig *trigger.Type) (*result.ApplicationLog, error)
}

// Contract provides current state of the audited contract. It's implemented
// by splitter.ContractReader.
type Contract interface {
	BalanceOf(account util.Uint160) (*big.Int, error)
	Owner() (util.Uint160, error)
	Fee() (*big.Int, error)
	Denom() (util.Uint160, error)
	CollectedFees() (*big.Int, error)
	Absorbed() (*big.Int, error)
}

// TokenReader provides balances of the denomination token. It's implemented
// by nep17.TokenReader.
type TokenReader interface {
	BalanceOf(account util.Uint160) (*big.Int, error)
}

// Prm groups Auditor parameters.
type Prm struct {
	// Writes replay progress into the log. Optional.
	Logger *zap.Logger

	// History source. Required.
	Blockchain Blockchain

	// Address of the audited contract.
	Contract util.Uint160

	// Reference ledger events are applied to. Must be empty before the first
	// replay. Required.
	Ledger *ledger.Ledger
}

// Mismatch describes divergence between the contract and the reference
// ledger.
type Mismatch struct {
	// What is compared, e.g. "fee" or "balance of <address>".
	Subject  string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Subject, m.Expected, m.Actual)
}

// Report is the result of the audit.
type Report struct {
	// Identifier of the Auditor made the report.
	RunID uuid.UUID
	// Last replayed block.
	Height uint32
	// Number of applied events.
	Events int
	// Total amount the contract must hold according to its history.
	Custody *big.Int
	// Mismatches found during replay and comparison. Empty if the contract
	// matches its history.
	Mismatches []Mismatch
}

// OK reports whether no mismatches were found.
func (r Report) OK() bool {
	return len(r.Mismatches) == 0
}

// Auditor replays history of the contract and compares it with the current
// contract state. Auditor is not safe for concurrent use.
type Auditor struct {
	runID    uuid.UUID
	log      *zap.Logger
	chain    Blockchain
	contract util.Uint160
	ledger   *ledger.Ledger

	height     uint32
	next       uint32
	replayed   bool
	events     int
	accounts   map[util.Uint160]struct{}
	mismatches []Mismatch
}

// New creates new Auditor with a random run identifier.
func New(prm Prm) (*Auditor, error) {
	switch {
	case prm.Blockchain == nil:
		return nil, errors.New("missing blockchain")
	case prm.Ledger == nil:
		return nil, errors.New("missing reference ledger")
	}

	runID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate run ID: %w", err)
	}

	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Auditor{
		runID:    runID,
		log:      log.With(zap.Stringer("run", runID), zap.Stringer("contract", prm.Contract)),
		chain:    prm.Blockchain,
		contract: prm.Contract,
		ledger:   prm.Ledger,
		accounts: make(map[util.Uint160]struct{}),
	}, nil
}

// RunID returns identifier the Auditor marks its logs and reports with.
func (a *Auditor) RunID() uuid.UUID {
	return a.runID
}

// Next returns the first block not replayed yet.
func (a *Auditor) Next() uint32 {
	return a.next
}

// Replay applies contract events from blocks [from, to] to the reference
// ledger. Zero to means the latest block, genesis block can't hold contract
// events. Every block is applied entirely or not at all. If Replay fails,
// blocks before Next stay applied and the replay can be continued from Next.
// Blocks replayed earlier are never applied again. Replay stops between
// blocks if ctx is done.
func (a *Auditor) Replay(ctx context.Context, from, to uint32) error {
	if to == 0 {
		count, err := a.chain.GetBlockCount()
		if err != nil {
			return fmt.Errorf("get number of blocks: %w", err)
		}
		if count == 0 {
			return nil
		}
		to = count - 1
	}

	if from > to {
		return fmt.Errorf("invalid block range [%d, %d]", from, to)
	}
	if a.replayed && from < a.next {
		return fmt.Errorf("blocks before #%d are already replayed", a.next)
	}

	a.log.Info("replaying contract history", zap.Uint32("from", from), zap.Uint32("to", to))

	for h := from; h <= to; h++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logs, err := a.blockLogs(h)
		if err != nil {
			return err
		}

		for i := range logs {
			a.applyLog(logs[i])
		}

		a.height, a.next, a.replayed = h, h+1, true

		if h == to {
			break
		}
	}

	a.log.Info("contract history replayed",
		zap.Uint32("height", a.height), zap.Int("events", a.events), zap.Int("mismatches", len(a.mismatches)))

	return nil
}

// blockLogs returns execution results of all transactions in the block.
func (a *Auditor) blockLogs(h uint32) ([]*result.ApplicationLog, error) {
	b, err := a.chain.GetBlockByIndex(h)
	if err != nil {
		return nil, fmt.Errorf("get block #%d: %w", h, err)
	}

	logs := make([]*result.ApplicationLog, 0, len(b.Transactions))

	for _, tx := range b.Transactions {
		txHash := tx.Hash()

		appLog, err := a.chain.GetApplicationLog(txHash, nil)
		if err != nil {
			return nil, fmt.Errorf("get application log of tx %s: %w", txHash.StringLE(), err)
		}

		logs = append(logs, appLog)
	}

	return logs, nil
}

func (a *Auditor) applyLog(appLog *result.ApplicationLog) {
	for _, ex := range appLog.Executions {
		if ex.VMState != vmstate.Halt {
			continue
		}

		for _, ev := range ex.Events {
			if !ev.ScriptHash.Equals(a.contract) {
				continue
			}

			err := a.applyEvent(ev)
			if err != nil {
				a.mismatch("event "+ev.Name+" of tx "+appLog.Container.StringLE(), "applicable event", err.Error())
				continue
			}

			a.events++
		}
	}
}

func (a *Auditor) applyEvent(ev state.NotificationEvent) error {
	switch ev.Name {
	case splitterconst.InitializeEvent:
		var e splitter.InitializeEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		a.log.Debug("initialization", zap.Stringer("owner", e.Owner), zap.Stringer("fee", e.Fee))

		return a.ledger.Instantiate(e.Owner, e.Fee, denomString(e.Denom))
	case splitterconst.SplitEvent:
		var e splitter.SplitEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		a.log.Debug("split", zap.Stringer("from", e.From), zap.Stringer("deposit", e.Deposit))

		denom, err := a.ledger.Denom()
		if err != nil {
			return err
		}

		res, err := a.ledger.Transfer(e.From, e.RecipientA, e.RecipientB, ledger.Coin{Amount: e.Deposit, Denom: denom})
		if err != nil {
			return err
		}

		a.touch(e.RecipientA, e.RecipientB)

		if res.RecipientACredit.Cmp(e.Share) != 0 {
			a.mismatch("share of deposit from "+e.From.StringLE(), e.Share.String(), res.RecipientACredit.String())
		}
		if res.FeeCharged.Cmp(e.Fee) != 0 {
			a.mismatch("fee of deposit from "+e.From.StringLE(), e.Fee.String(), res.FeeCharged.String())
		}

		return nil
	case splitterconst.WithdrawEvent:
		var e splitter.WithdrawEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		a.log.Debug("withdrawal", zap.Stringer("account", e.Account), zap.Stringer("amount", e.Amount))
		a.touch(e.Account)

		_, err := a.ledger.Withdraw(e.Account, e.Amount)
		return err
	case splitterconst.FeeWithdrawEvent:
		var e splitter.FeeWithdrawEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		a.log.Debug("fee withdrawal", zap.Stringer("amount", e.Amount))

		_, err := a.ledger.WithdrawFees(e.Owner, e.Amount)
		return err
	case splitterconst.FeeUpdateEvent:
		var e splitter.FeeUpdateEvent
		if err := e.FromStackItem(ev.Item); err != nil {
			return err
		}

		a.log.Debug("fee update", zap.Stringer("fee", e.Fee))

		owner, err := a.ledger.Owner()
		if err != nil {
			return err
		}

		return a.ledger.SetFee(owner, e.Fee)
	default:
		a.log.Debug("skip unknown event", zap.String("name", ev.Name))
		return nil
	}
}

// Compare checks replayed state against the contract and returns the report.
// If token is not nil, custody is also compared with the token balance of
// the contract. Compare can be called repeatedly as Replay continues.
func (a *Auditor) Compare(c Contract, token TokenReader) (Report, error) {
	report := Report{
		RunID:  a.runID,
		Height: a.height,
		Events: a.events,
	}

	cfg, err := a.ledger.Config()
	if err != nil {
		return report, fmt.Errorf("read reference config: %w", err)
	}

	owner, err := c.Owner()
	if err != nil {
		return report, fmt.Errorf("read contract owner: %w", err)
	}
	if !owner.Equals(cfg.Owner) {
		a.mismatch("owner", cfg.Owner.StringLE(), owner.StringLE())
	}

	denom, err := c.Denom()
	if err != nil {
		return report, fmt.Errorf("read contract denomination: %w", err)
	}
	if denomString(denom) != cfg.Denom {
		a.mismatch("denomination", cfg.Denom, denomString(denom))
	}

	for _, x := range []struct {
		subject  string
		expected func() (*big.Int, error)
		actual   func() (*big.Int, error)
	}{
		{"fee", a.ledger.Fee, c.Fee},
		{"collected fees", a.ledger.CollectedFees, c.CollectedFees},
		{"absorbed", a.ledger.Absorbed, c.Absorbed},
	} {
		err = a.compareInt(x.subject, x.expected, x.actual)
		if err != nil {
			return report, err
		}
	}

	for acc := range a.accounts {
		acc := acc
		err = a.compareInt("balance of "+acc.StringLE(),
			func() (*big.Int, error) { return a.ledger.Balance(acc) },
			func() (*big.Int, error) { return c.BalanceOf(acc) })
		if err != nil {
			return report, err
		}
	}

	report.Custody, err = a.ledger.Custody()
	if err != nil {
		return report, fmt.Errorf("calculate custody: %w", err)
	}

	if token != nil {
		held, err := token.BalanceOf(a.contract)
		if err != nil {
			return report, fmt.Errorf("read token balance of the contract: %w", err)
		}
		if held.Cmp(report.Custody) != 0 {
			a.mismatch("custody", report.Custody.String(), held.String())
		}
	}

	report.Mismatches = append(report.Mismatches, a.mismatches...)
	a.mismatches = a.mismatches[:0]

	a.log.Info("contract compared with its history",
		zap.Stringer("custody", report.Custody), zap.Int("mismatches", len(report.Mismatches)))

	return report, nil
}

func (a *Auditor) compareInt(subject string, expected, actual func() (*big.Int, error)) error {
	e, err := expected()
	if err != nil {
		return fmt.Errorf("read reference %s: %w", subject, err)
	}

	c, err := actual()
	if err != nil {
		return fmt.Errorf("read contract %s: %w", subject, err)
	}

	if e.Cmp(c) != 0 {
		a.mismatch(subject, e.String(), c.String())
	}

	return nil
}

func (a *Auditor) touch(accs ...util.Uint160) {
	for i := range accs {
		a.accounts[accs[i]] = struct{}{}
	}
}

func (a *Auditor) mismatch(subject, expected, actual string) {
	m := Mismatch{Subject: subject, Expected: expected, Actual: actual}
	a.log.Warn("mismatch", zap.Stringer("mismatch", m))
	a.mismatches = append(a.mismatches, m)
}

// denomString returns denomination of the reference ledger for the token
// contract.
func denomString(token util.Uint160) string {
	return token.StringLE()
}
