package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// GetInt reads integer value stored under the key. Missing value is
// considered to be zero.
func GetInt(ctx storage.Context, key any) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}

// PutInt stores integer value under the key. Zero value removes the key.
func PutInt(ctx storage.Context, key any, value int) {
	if value == 0 {
		storage.Delete(ctx, key)
		return
	}

	storage.Put(ctx, key, value)
}
