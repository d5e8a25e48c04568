// Package splitterconst holds values shared by the Splitter contract and its
// off-chain counterparts: storage keys, notification names and failure
// messages.
package splitterconst

// Storage keys. Account balances are stored under AccountPrefix followed by
// the 20-byte account script hash.
const (
	OwnerKey         = "o"
	FeeKey           = "f"
	DenomKey         = "d"
	CollectedFeesKey = "c"
	AbsorbedKey      = "x"
	AccountPrefix    = 'a'
)

// Notification names.
const (
	InitializeEvent  = "Initialize"
	SplitEvent       = "Split"
	WithdrawEvent    = "Withdraw"
	FeeWithdrawEvent = "FeeWithdraw"
	FeeUpdateEvent   = "FeeUpdate"
)

// Failure messages. A contract FAULT exception contains one of them.
const (
	ErrAlreadyInitialized  = "already initialized"
	ErrNotInitialized      = "not initialized"
	ErrUnauthorized        = "unauthorized: owner witness check failed"
	ErrInvalidFee          = "invalid fee: must be non-negative"
	ErrInsufficientDeposit = "insufficient deposit: less than fee"
	ErrWrongDenom          = "wrong denomination"
	ErrInsufficientBalance = "insufficient balance"
	ErrInvalidAmount       = "invalid amount: must be positive"
	ErrInvalidRecipients   = "invalid data: expected two recipient hashes"
	ErrPayoutFailed        = "payout transfer failed"
)
