package splitter

import (
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// TokenWriter sends NEP-17 transfers. It's implemented by [nep17.TokenWriter]
// of the denomination token.
type TokenWriter interface {
	Transfer(from util.Uint160, to util.Uint160, amount *big.Int, data any) (util.Uint256, uint32, error)
}

var _ TokenWriter = (*nep17.TokenWriter)(nil)

// Deposit transfers amount of the denomination token from the sender to the
// Splitter contract, asking it to split the rest after fee between recipients.
// The values returned are transfer transaction hash, its ValidUntilBlock value
// and error if any.
func Deposit(token TokenWriter, splitter, from util.Uint160, amount *big.Int, recipientA, recipientB util.Uint160) (util.Uint256, uint32, error) {
	return token.Transfer(from, splitter, amount, DepositData(recipientA, recipientB))
}

// DepositData returns NEP-17 transfer data the contract expects along with
// deposits.
func DepositData(recipientA, recipientB util.Uint160) []any {
	return []any{recipientA, recipientB}
}
