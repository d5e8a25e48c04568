package ledger

import (
	"errors"

	"github.com/nspcc-dev/splitter-contract/contracts/splitter/splitterconst"
)

// Errors returned by Ledger operations. They carry the same messages as the
// Splitter contract failures.
var (
	ErrAlreadyInitialized  = errors.New(splitterconst.ErrAlreadyInitialized)
	ErrNotInitialized      = errors.New(splitterconst.ErrNotInitialized)
	ErrUnauthorized        = errors.New(splitterconst.ErrUnauthorized)
	ErrInvalidFee          = errors.New(splitterconst.ErrInvalidFee)
	ErrInsufficientDeposit = errors.New(splitterconst.ErrInsufficientDeposit)
	ErrWrongDenom          = errors.New(splitterconst.ErrWrongDenom)
	ErrInsufficientBalance = errors.New(splitterconst.ErrInsufficientBalance)
	ErrInvalidAmount       = errors.New(splitterconst.ErrInvalidAmount)
)
