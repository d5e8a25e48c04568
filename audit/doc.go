/*
Package audit reconciles the Splitter contract with its own history.

Auditor walks blocks of the chain, picks notifications of the audited contract
from application logs of successfully executed transactions and applies them
in emission order to a reference ledger.Ledger:

	Initialize  -> Instantiate
	Split       -> Transfer
	Withdraw    -> Withdraw
	FeeWithdraw -> WithdrawFees
	FeeUpdate   -> SetFee

Events the reference ledger refuses to apply, or applies with a different
outcome than the contract reported, are collected as mismatches. Compare then
checks the replayed state against the contract's safe methods and, optionally,
against the token balance of the contract.

Replay must start no later than the deployment block of the contract.
*/
package audit
