/*
Package ledger implements the Splitter accounting rules as a plain Go library.

Ledger keeps the same state as the Splitter contract (configuration, account
balances, collected fees and absorbed units) in a key-value store using the
contract's storage layout and Neo VM integer encoding, so a dump of contract
storage can be read by Ledger and vice versa.

Every call is an all-or-nothing unit: changes are staged in a
storage.MemCachedStore over the backing store and persisted only when the
call succeeds. Calls are serialized.

Withdrawals do not move tokens by themselves, they return a Payout the caller
is expected to execute with its value-transfer mechanism.
*/
package ledger
