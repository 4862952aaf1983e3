package txpool

// Validator is the external collaborator that checks a transaction's
// signature, format, gas and on-chain nonce/block-limit status. This
// package treats it purely as an interface; concrete validators (RLP
// decoding, signature recovery, ledger lookups) are out of scope.
type Validator interface {
	// Verify checks signature, format and gas. Returns StatusNone on
	// success.
	Verify(tx *Transaction) Status
	// SubmittedToChain checks nonce-vs-ledger and block-limit validity
	// for a transaction that is already resident in the pool.
	SubmittedToChain(tx *Transaction) Status
}

// NonceChecker abstracts both the pool-level and ledger-level nonce
// checkers named in spec.md §2. The pool checker prevents duplicate
// pending nonces; the ledger checker records finalized nonces.
type NonceChecker interface {
	// BatchInsert records a batch of finalized nonces (ledger checker
	// only; batchID identifies the committing proposal).
	BatchInsert(batchID BatchID, nonces []Nonce)
	// BatchRemove drops a batch of nonces (pool checker only).
	BatchRemove(nonces []Nonce)
}

// UnsealedSizeNotifier delivers the pool's current unsealed size to an
// external listener (e.g. the consensus sealing loop deciding whether
// to propose). cb must be invoked exactly once with a non-nil error on
// failure, or nil on success.
type UnsealedSizeNotifier func(size int, cb func(err error))

// Timer models the cleanup sweep's lifecycle: register a handler, then
// start/stop/restart it. Concrete timers (time.Timer-backed) live in
// this package; nothing about the interface is chain-specific.
type Timer interface {
	RegisterTimeoutHandler(fn func())
	Start()
	Stop()
	Restart()
}
