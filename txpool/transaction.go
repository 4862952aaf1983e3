package txpool

import "sync"

// SubmitCallback is resolved exactly once per submitted transaction,
// either synchronously with a rejection Status or later, from
// batchRemove, with the chain's commit result.
type SubmitCallback func(*SubmitResult)

// SubmitResult is the outcome delivered to a transaction's submitter.
// Sender/To are only populated once the transaction has actually left
// the pool (committed or evicted); synchronous rejections leave them
// empty since the transaction was never inserted.
type SubmitResult struct {
	Hash   Hash
	Status Status
	Sender Address
	To     Address
	Nonce  Nonce
}

// Payload is the immutable part of a transaction, set once at
// construction and never mutated by the pool.
type Payload struct {
	Hash      Hash
	Sender    Address
	To        Address
	Nonce     Nonce
	Attribute uint32
	SystemTx  bool
}

// flags holds the mutable state of a pending transaction, protected by
// the Transaction's own mutex (see Transaction.mu).
type flags struct {
	sealed     bool
	synced     bool
	batchID    BatchID
	batchHash  Hash
	importTime uint64 // ms
	invalid    bool
	knownPeers map[PeerID]struct{}
	callback   SubmitCallback
}

// Transaction is a pending entry owned by the Pool. Payload is
// immutable. The pool's RWMutex guards the txs map itself (insertion,
// deletion, iteration); it does not by itself make concurrent field
// mutation on two different map entries safe under a shared RLock, so
// every mutable flag is additionally behind this Transaction's own
// mutex. This is the Go-idiomatic reading of spec.md's "shared pointer
// whose fields are mutated in place under a pool-wide lock": the
// pool-wide lock is the barrier against concurrent removal (see
// spec.md §5, "shared-resource policy"), and the per-entry mutex is
// the barrier against concurrent flag mutation — needed because Go's
// map does not offer the fine-grained internal locking that let the
// original mutate flags of two different entries under one shared
// reader lock.
type Transaction struct {
	Payload

	mu sync.Mutex
	f  flags
}

// NewTransaction builds a pending transaction ready for submission.
// The mutable flags start unsealed, unsynced and with no callback.
func NewTransaction(p Payload) *Transaction {
	tx := &Transaction{Payload: p}
	tx.f.batchID = UnsealedBatchID
	return tx
}

// Snapshot is a read-only, detached view of a transaction's current
// flags, safe to hold indefinitely.
type Snapshot struct {
	Payload
	Sealed     bool
	Synced     bool
	BatchID    BatchID
	BatchHash  Hash
	ImportTime uint64
	Invalid    bool
}

func (tx *Transaction) snapshot() Snapshot {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return Snapshot{
		Payload:    tx.Payload,
		Sealed:     tx.f.sealed,
		Synced:     tx.f.synced,
		BatchID:    tx.f.batchID,
		BatchHash:  tx.f.batchHash,
		ImportTime: tx.f.importTime,
		Invalid:    tx.f.invalid,
	}
}

func (tx *Transaction) setImportTime(ms uint64) {
	tx.mu.Lock()
	tx.f.importTime = ms
	tx.mu.Unlock()
}

func (tx *Transaction) isSealed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.f.sealed
}

func (tx *Transaction) isSynced() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.f.synced
}

// markSynced sets synced=true and reports whether it was already set.
func (tx *Transaction) markSynced() (already bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	already = tx.f.synced
	tx.f.synced = true
	return already
}

func (tx *Transaction) batchInfo() (BatchID, Hash) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.f.batchID, tx.f.batchHash
}

// seal marks the transaction sealed into (batchID, hash) and reports
// whether it was already sealed prior to this call.
func (tx *Transaction) seal(batchID BatchID, hash Hash) (wasSealed bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	wasSealed = tx.f.sealed
	tx.f.sealed = true
	tx.f.batchID = batchID
	tx.f.batchHash = hash
	return wasSealed
}

// unseal clears the sealed flag, resetting batch identity to the
// unsealed sentinel, and reports whether it had been sealed.
func (tx *Transaction) unseal() (wasSealed bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	wasSealed = tx.f.sealed
	tx.f.sealed = false
	tx.f.batchID = UnsealedBatchID
	tx.f.batchHash = Hash{}
	return wasSealed
}

func (tx *Transaction) markInvalid() {
	tx.mu.Lock()
	tx.f.invalid = true
	tx.mu.Unlock()
}

func (tx *Transaction) isInvalid() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.f.invalid
}

// takeCallback consumes and clears the submit callback so it fires
// exactly once.
func (tx *Transaction) takeCallback() SubmitCallback {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	cb := tx.f.callback
	tx.f.callback = nil
	return cb
}

func (tx *Transaction) setCallback(cb SubmitCallback) {
	tx.mu.Lock()
	tx.f.callback = cb
	tx.mu.Unlock()
}

func (tx *Transaction) appendKnownPeer(p PeerID) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.f.knownPeers == nil {
		tx.f.knownPeers = make(map[PeerID]struct{})
	}
	tx.f.knownPeers[p] = struct{}{}
}
