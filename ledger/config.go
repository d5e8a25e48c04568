package ledger

import (
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Config is the ledger configuration installed by Instantiate.
type Config struct {
	// Account allowed to change the fee and to withdraw collected fees.
	Owner util.Uint160
	// Flat amount deducted from every deposit.
	Fee *big.Int
	// The only denomination deposits are accepted in.
	Denom string
}

func instantiate(s Store, cfg Config) error {
	_, ok, err := get(s, ownerKey)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}

	if cfg.Fee == nil || cfg.Fee.Sign() < 0 {
		return ErrInvalidFee
	}

	s.Put(ownerKey, cfg.Owner.BytesBE())
	s.Put(denomKey, []byte(cfg.Denom))
	putInt(s, feeKey, cfg.Fee)

	return nil
}

func loadConfig(s Store) (Config, error) {
	var cfg Config

	owner, ok, err := get(s, ownerKey)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, ErrNotInitialized
	}

	cfg.Owner, err = util.Uint160DecodeBytesBE(owner)
	if err != nil {
		return cfg, fmt.Errorf("invalid owner: %w", err)
	}

	cfg.Fee, err = getInt(s, feeKey)
	if err != nil {
		return cfg, err
	}

	denom, _, err := get(s, denomKey)
	if err != nil {
		return cfg, err
	}
	cfg.Denom = string(denom)

	return cfg, nil
}

func setFee(s Store, caller util.Uint160, fee *big.Int) (Config, error) {
	cfg, err := loadConfig(s)
	if err != nil {
		return cfg, err
	}

	if !isOwner(cfg, caller) {
		return cfg, ErrUnauthorized
	}

	if fee == nil || fee.Sign() < 0 {
		return cfg, ErrInvalidFee
	}

	putInt(s, feeKey, fee)
	cfg.Fee = new(big.Int).Set(fee)

	return cfg, nil
}

func isOwner(cfg Config, caller util.Uint160) bool {
	return caller.Equals(cfg.Owner)
}
