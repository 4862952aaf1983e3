package txpool

// Status is the closed set of outcomes a submission path can report,
// mapped 1:1 to a numeric code for cross-process reporting.
type Status int32

const (
	// StatusNone means the transaction is acceptable / the operation
	// succeeded.
	StatusNone Status = 0
	// StatusAlreadyInTxPool means a transaction with the same hash is
	// already pending.
	StatusAlreadyInTxPool Status = 1
	// StatusTxPoolIsFull means the pool is at its configured capacity
	// and the submission path enforces that limit.
	StatusTxPoolIsFull Status = 2
	// StatusNonceCheckFail means the ledger or pool nonce checker
	// rejected the transaction's nonce (duplicate or already on chain).
	StatusNonceCheckFail Status = 3
	// StatusBlockLimitCheckFail means the transaction's block-limit
	// window has expired relative to the current chain height.
	StatusBlockLimitCheckFail Status = 4
	// StatusMalform means the validator rejected the transaction's
	// signature, format or gas parameters.
	StatusMalform Status = 5
	// StatusTransactionPoolTimeout means the transaction was evicted as
	// invalid by the cleanup sweep or by batchFetchTxs: it expired while
	// pending, or failed the block-limit check.
	StatusTransactionPoolTimeout Status = 6
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusAlreadyInTxPool:
		return "AlreadyInTxPool"
	case StatusTxPoolIsFull:
		return "TxPoolIsFull"
	case StatusNonceCheckFail:
		return "NonceCheckFail"
	case StatusBlockLimitCheckFail:
		return "BlockLimitCheckFail"
	case StatusMalform:
		return "Malform"
	case StatusTransactionPoolTimeout:
		return "TransactionPoolTimeout"
	default:
		return "Unknown"
	}
}
