package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/gas"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/neo"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
)

const rpcTimeout = 15 * time.Second

// dialRPC connects to Neo RPC server. Connection and all requests are done
// within 15s timeout.
func dialRPC(ctx context.Context, endpoint string) (*rpcclient.Client, error) {
	if endpoint == "" {
		return nil, errors.New("missing Neo RPC endpoint")
	}

	c, err := rpcclient.New(ctx, endpoint, rpcclient.Options{
		DialTimeout:    rpcTimeout,
		RequestTimeout: rpcTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("RPC client init: %w", err)
	}

	return c, nil
}

// openAccount reads the wallet and decrypts account with given address, or
// the default account if addr is empty. The wallet is not closed since it
// wipes keys of the returned account.
func openAccount(walletPath, addr, password string) (*wallet.Account, error) {
	if walletPath == "" {
		return nil, errors.New("missing wallet")
	}

	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}

	var h util.Uint160
	if addr != "" {
		h, err = address.StringToUint160(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}
	} else {
		h = w.GetChangeAddress()
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s not found in the wallet", address.Uint160ToString(h))
	}

	err = acc.Decrypt(password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	return acc, nil
}

func newActor(c *rpcclient.Client, acc *wallet.Account) (*actor.Actor, error) {
	act, err := actor.NewSimple(c, acc)
	if err != nil {
		return nil, fmt.Errorf("init actor: %w", err)
	}
	return act, nil
}

// parseHash160 accepts Neo address or little-endian hex string.
func parseHash160(s string) (util.Uint160, error) {
	h, err := address.StringToUint160(s)
	if err == nil {
		return h, nil
	}

	h, err = util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("neither address nor LE hash: %s", s)
	}

	return h, nil
}

// parseDenom resolves the accepted token, native GAS and NEO can be referenced
// by name.
func parseDenom(s string) (util.Uint160, error) {
	switch strings.ToLower(s) {
	case "gas":
		return gas.Hash, nil
	case "neo":
		return neo.Hash, nil
	default:
		return parseHash160(s)
	}
}
