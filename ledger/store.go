package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
)

// Store is a key-value storage operations are applied to. Ledger passes a
// storage.MemCachedStore staging the current call.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte)
	Delete(key []byte)
	Seek(rng storage.SeekRange, f func(k, v []byte) bool)
}

var (
	ownerKey         = []byte(splitterconst.OwnerKey)
	feeKey           = []byte(splitterconst.FeeKey)
	denomKey         = []byte(splitterconst.DenomKey)
	collectedFeesKey = []byte(splitterconst.CollectedFeesKey)
	absorbedKey      = []byte(splitterconst.AbsorbedKey)
	accountPrefix    = []byte{splitterconst.AccountPrefix}
)

// OpenStore opens backing store described by the configuration. Supported
// types are the ones of neo-go node: in-memory, BoltDB and LevelDB.
func OpenStore(cfg dbconfig.DBConfiguration) (storage.Store, error) {
	if cfg.Type == "" {
		cfg.Type = dbconfig.InMemoryDB
	}

	st, err := storage.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}

	return st, nil
}

func accountKey(acc util.Uint160) []byte {
	return append(append([]byte{}, accountPrefix...), acc.BytesBE()...)
}

func get(s Store, key []byte) ([]byte, bool, error) {
	v, err := s.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}

	return v, true, nil
}

// getInt reads integer stored under the key. Missing value is zero.
func getInt(s Store, key []byte) (*big.Int, error) {
	v, ok, err := get(s, key)
	if err != nil || !ok {
		return new(big.Int), err
	}

	return bigint.FromBytes(v), nil
}

// putInt stores integer under the key, zero removes the key.
func putInt(s Store, key []byte, n *big.Int) {
	if n.Sign() == 0 {
		s.Delete(key)
		return
	}

	s.Put(key, bigint.ToBytes(n))
}

func addInt(s Store, key []byte, delta *big.Int) (*big.Int, error) {
	n, err := getInt(s, key)
	if err != nil {
		return nil, err
	}

	n.Add(n, delta)
	putInt(s, key, n)

	return n, nil
}

// seekAccounts calls f for every stored account balance until f returns
// false.
func seekAccounts(s Store, f func(acc util.Uint160, balance *big.Int) bool) error {
	var decodeErr error

	s.Seek(storage.SeekRange{Prefix: accountPrefix}, func(k, v []byte) bool {
		acc, err := util.Uint160DecodeBytesBE(k[len(accountPrefix):])
		if err != nil {
			decodeErr = fmt.Errorf("invalid account key %x: %w", k, err)
			return false
		}
		return f(acc, bigint.FromBytes(v))
	})

	return decodeErr
}
