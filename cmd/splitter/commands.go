package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/splitter-contract/audit"
	"github.com/nspcc-dev/splitter-contract/deploy"
	"github.com/nspcc-dev/splitter-contract/ledger"
	"github.com/nspcc-dev/splitter-contract/rpc/splitter"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func deployCmd(ctx context.Context, c *cli.Context, log *zap.Logger) error {
	nefBytes, err := os.ReadFile(c.String(nefFlag))
	if err != nil {
		return fmt.Errorf("read NEF file: %w", err)
	}

	nefFile, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		return fmt.Errorf("decode NEF file: %w", err)
	}

	manifestBytes, err := os.ReadFile(c.String(manifestFlag))
	if err != nil {
		return fmt.Errorf("read manifest file: %w", err)
	}

	var m manifest.Manifest

	err = json.Unmarshal(manifestBytes, &m)
	if err != nil {
		return fmt.Errorf("decode manifest file: %w", err)
	}

	denom, err := parseDenom(c.String(denomFlag))
	if err != nil {
		return fmt.Errorf("invalid denomination: %w", err)
	}

	acc, err := openAccount(c.String(walletFlag), c.String(addressFlag), c.String(passwordFlag))
	if err != nil {
		return err
	}

	owner := acc.ScriptHash()
	if s := c.String(ownerFlag); s != "" {
		owner, err = parseHash160(s)
		if err != nil {
			return fmt.Errorf("invalid owner: %w", err)
		}
	}

	rpc, err := dialRPC(ctx, c.String(rpcFlag))
	if err != nil {
		return err
	}

	defer rpc.Close()

	act, err := newActor(rpc, acc)
	if err != nil {
		return err
	}

	addr, err := deploy.Splitter(ctx, deploy.Prm{
		Logger:   log,
		Actor:    act,
		NEF:      nefFile,
		Manifest: m,
		Owner:    owner,
		Fee:      big.NewInt(c.Int64(feeFlag)),
		Denom:    denom,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Contract: %s (%s)\n", address.Uint160ToString(addr), addr.StringLE())

	return nil
}

func contractFromFlag(c *cli.Context) (util.Uint160, error) {
	s := c.String(contractFlag)
	if s == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}

	h, err := parseHash160(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract address: %w", err)
	}

	return h, nil
}

func queryCmd(ctx context.Context, c *cli.Context, _ *zap.Logger) error {
	contract, err := contractFromFlag(c)
	if err != nil {
		return err
	}

	var accounts []util.Uint160
	for _, s := range c.StringSlice(accountFlag) {
		acc, err := parseHash160(s)
		if err != nil {
			return fmt.Errorf("invalid account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	rpc, err := dialRPC(ctx, c.String(rpcFlag))
	if err != nil {
		return err
	}

	defer rpc.Close()

	r := splitter.NewReader(invoker.New(rpc, nil), contract)

	owner, err := r.Owner()
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}

	denom, err := r.Denom()
	if err != nil {
		return fmt.Errorf("denom: %w", err)
	}

	w := c.App.Writer

	fmt.Fprintf(w, "Owner: %s\n", address.Uint160ToString(owner))
	fmt.Fprintf(w, "Denom: %s\n", denom.StringLE())

	for _, x := range []struct {
		name string
		f    func() (*big.Int, error)
	}{
		{"Fee", r.Fee},
		{"Collected fees", r.CollectedFees},
		{"Absorbed", r.Absorbed},
		{"Version", r.Version},
	} {
		n, err := x.f()
		if err != nil {
			return fmt.Errorf("%s: %w", x.name, err)
		}
		fmt.Fprintf(w, "%s: %s\n", x.name, n)
	}

	for _, acc := range accounts {
		b, err := r.BalanceOf(acc)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", address.Uint160ToString(acc), err)
		}
		fmt.Fprintf(w, "Balance of %s: %s\n", address.Uint160ToString(acc), b)
	}

	return nil
}

func storeConfig(c *cli.Context) (dbconfig.DBConfiguration, error) {
	cfg := dbconfig.DBConfiguration{Type: c.String(dbTypeFlag)}
	path := c.String(dbPathFlag)

	switch cfg.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.BoltDB:
		cfg.BoltDBOptions.FilePath = path
	case dbconfig.LevelDB:
		cfg.LevelDBOptions.DataDirectoryPath = path
	default:
		return cfg, fmt.Errorf("unsupported store type '%s'", cfg.Type)
	}

	if cfg.Type != dbconfig.InMemoryDB && path == "" {
		return cfg, fmt.Errorf("missing path of %s store", cfg.Type)
	}

	return cfg, nil
}

func auditCmd(ctx context.Context, c *cli.Context, log *zap.Logger) error {
	contract, err := contractFromFlag(c)
	if err != nil {
		return err
	}

	dbCfg, err := storeConfig(c)
	if err != nil {
		return err
	}

	from, to := c.Uint64(fromFlag), c.Uint64(toFlag)
	if from > uint64(^uint32(0)) || to > uint64(^uint32(0)) {
		return errors.New("block index overflows uint32")
	}

	rpc, err := dialRPC(ctx, c.String(rpcFlag))
	if err != nil {
		return err
	}

	defer rpc.Close()

	st, err := ledger.OpenStore(dbCfg)
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	auditor, err := audit.New(audit.Prm{
		Logger:     log,
		Blockchain: rpc,
		Contract:   contract,
		Ledger:     ledger.New(st, ledger.WithLogger(log)),
	})
	if err != nil {
		return fmt.Errorf("init auditor: %w", err)
	}

	err = auditor.Replay(ctx, uint32(from), uint32(to))
	if err != nil {
		return fmt.Errorf("replay history: %w", err)
	}

	inv := invoker.New(rpc, nil)
	r := splitter.NewReader(inv, contract)

	denom, err := r.Denom()
	if err != nil {
		return fmt.Errorf("denom: %w", err)
	}

	report, err := auditor.Compare(r, nep17.NewReader(inv, denom))
	if err != nil {
		return fmt.Errorf("compare state: %w", err)
	}

	w := c.App.Writer

	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	fmt.Fprintf(w, "Height: %d\n", report.Height)
	fmt.Fprintf(w, "Events: %d\n", report.Events)
	fmt.Fprintf(w, "Custody: %s\n", report.Custody)

	for _, m := range report.Mismatches {
		fmt.Fprintf(w, "MISMATCH %s\n", m)
	}

	if !report.OK() {
		return cli.NewExitError(fmt.Sprintf("audit failed: %d mismatches", len(report.Mismatches)), 2)
	}

	return nil
}
