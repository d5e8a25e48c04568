/*
Package splitter implements Splitter contract which is deployed to any Neo N3
network.

Splitter contract is a custodial ledger of a single NEP-17 token. A sender
transfers tokens to the contract and names two recipients in the transfer
data. The contract keeps a flat fee configured by the owner, splits the rest
evenly between the recipients and keeps their shares as withdrawable balances.
When the remainder is odd, the unit that cannot be split is neither credited
nor refunded, it is counted as absorbed.

The contract stays the custodian of every token it accepted: the sum of all
balances, collected fees and absorbed units equals contract's own balance of
the token.

# Deployment

Deployment data is an array of three items: owner account (Hash160), fee
(Integer, non-negative) and script hash of the accepted NEP-17 token
(Hash160).

# Deposits

Deposit is a NEP-17 transfer to the contract with data argument set to an
array of two recipient script hashes. Transfer of any other token, a deposit
below the fee or malformed data fail the whole transfer.

# Contract notifications

Initialize notification. It is produced once on deployment.

	Initialize:
	  - name: owner
	    type: Hash160
	  - name: fee
	    type: Integer
	  - name: denom
	    type: Hash160

Split notification. It is produced on every accepted deposit. Each recipient
is credited by share.

	Split:
	  - name: from
	    type: Hash160
	  - name: recipientA
	    type: Hash160
	  - name: recipientB
	    type: Hash160
	  - name: deposit
	    type: Integer
	  - name: share
	    type: Integer
	  - name: fee
	    type: Integer

Withdraw notification. It is produced when account withdraws its balance.

	Withdraw:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer

FeeWithdraw notification. It is produced when owner withdraws collected fees.

	FeeWithdraw:
	  - name: owner
	    type: Hash160
	  - name: amount
	    type: Integer

FeeUpdate notification. It is produced when owner changes the fee.

	FeeUpdate:
	  - name: fee
	    type: Integer
*/
package splitter
