package txpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum/go-ethereum/log"
)

// maxTraverseTxsCount bounds a single cleanup sweep pass, matching the
// original's MAX_TRAVERSE_TXS_COUNT.
const maxTraverseTxsCount = 10000

// Config holds the static knobs of a Pool.
type Config struct {
	// PoolLimit is the maximum number of pending transactions accepted
	// on a submission path that enforces the limit.
	PoolLimit int
	// ExpirationMS is how long, in milliseconds, a pending transaction
	// may sit unsealed (or sealed-but-uncommitted for an older batch)
	// before the pool considers it stale.
	ExpirationMS uint64
	// CleanupInterval is how often the background sweep runs.
	CleanupInterval time.Duration
	// CleanupEnabled, when non-nil, gates the cleanup sweep: normal
	// consensus nodes expire lazily inside BatchFetchTxs and disable
	// the sweep by returning false here.
	CleanupEnabled func() bool
}

// nowFunc is overridable in tests.
var nowFunc = func() uint64 { return uint64(time.Now().UnixMilli()) }

// Pool is the concurrent store of pending signed transactions.
type Pool struct {
	cfg Config

	validator          Validator
	poolNonceChecker   NonceChecker
	ledgerNonceChecker NonceChecker
	notifier           UnsealedSizeNotifier

	poolMu sync.RWMutex
	txs    map[Hash]*Transaction

	invalidMu     sync.Mutex
	invalidTxs    map[Hash]struct{}
	invalidNonces map[Nonce]struct{}

	sealedCount  atomic.Int64
	blockNumber  atomic.Int64
	tpsStartMS   atomic.Uint64
	onChainCount atomic.Uint64

	missedMu sync.RWMutex
	missed   *lru.Cache[Hash, struct{}]

	cleanupTimer Timer
	feeds        Feeds
}

// New constructs a Pool. validator, nonce checkers and notifier may be
// nil for tests that only exercise pure in-memory bookkeeping.
func New(cfg Config, validator Validator, poolNonceChecker, ledgerNonceChecker NonceChecker, notifier UnsealedSizeNotifier) *Pool {
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = 1_000_000
	}
	missed, err := lru.New[Hash, struct{}](cfg.PoolLimit)
	if err != nil {
		// Only returns an error for a non-positive size, which is
		// excluded above.
		panic(err)
	}
	p := &Pool{
		cfg:                cfg,
		validator:          validator,
		poolNonceChecker:   poolNonceChecker,
		ledgerNonceChecker: ledgerNonceChecker,
		notifier:           notifier,
		txs:                make(map[Hash]*Transaction),
		invalidTxs:         make(map[Hash]struct{}),
		invalidNonces:      make(map[Nonce]struct{}),
		missed:             missed,
	}
	p.blockNumber.Store(-1)
	timer := newPeriodicTimer(cfg.CleanupInterval)
	timer.RegisterTimeoutHandler(p.cleanUpExpired)
	p.cleanupTimer = timer
	return p
}

// Start arms the cleanup sweep.
func (p *Pool) Start() { p.cleanupTimer.Start() }

// Stop disarms the cleanup sweep.
func (p *Pool) Stop() { p.cleanupTimer.Stop() }

// Submit is the client submission path: validate, insert, and
// asynchronously resolve once the transaction leaves the pool (commit
// or eviction), or synchronously if it is rejected outright. The
// channel-based resolution is this package's realization of spec.md's
// "coroutine-style submit" design note — any goroutine may call
// Submit and block on its own result without blocking the pool.
func (p *Pool) Submit(ctx context.Context, tx *Transaction) (*SubmitResult, error) {
	resultCh := make(chan *SubmitResult, 1)
	status := p.submit(tx, func(r *SubmitResult) {
		select {
		case resultCh <- r:
		default:
		}
	}, true)
	if status != StatusNone {
		return &SubmitResult{Hash: tx.Hash, Status: status}, nil
	}
	select {
	case r := <-resultCh:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BatchImport is the peer-gossip path: submission without the pool
// capacity check and without a result callback, tolerating individual
// failures silently (trace-logged), matching spec.md's batch_import.
func (p *Pool) BatchImport(txs []*Transaction) {
	success := 0
	for _, tx := range txs {
		if tx == nil || tx.isInvalid() {
			continue
		}
		if status := p.submit(tx, nil, false); status != StatusNone {
			log.Trace("batchImport failed", "tx", tx.Hash, "status", status)
			continue
		}
		success++
	}
	p.notifyUnsealedSize(0)
	log.Debug("batchImport success", "imported", success, "total", len(txs), "pending", p.Size())
}

// submit implements the shared verify-then-insert logic behind Submit
// and BatchImport. It returns StatusNone on successful insertion (in
// which case cb, if non-nil, has been stashed on the transaction for
// later resolution) or the rejection status (in which case cb, if
// non-nil, has already been invoked synchronously).
func (p *Pool) submit(tx *Transaction, cb SubmitCallback, checkLimit bool) Status {
	tx.setImportTime(nowFunc())

	p.poolMu.RLock()
	_, duplicate := p.txs[tx.Hash]
	size := len(p.txs)
	p.poolMu.RUnlock()

	if duplicate {
		return p.reject(tx, cb, StatusAlreadyInTxPool)
	}
	if size == 0 {
		p.tpsStartMS.CompareAndSwap(0, nowFunc())
	}
	if checkLimit && size >= p.cfg.PoolLimit {
		return p.reject(tx, cb, StatusTxPoolIsFull)
	}
	if p.validator != nil {
		if status := p.validator.Verify(tx); status != StatusNone {
			return p.reject(tx, cb, status)
		}
	}
	if cb != nil {
		tx.setCallback(cb)
	}
	if !p.insert(tx) {
		return p.reject(tx, cb, StatusAlreadyInTxPool)
	}
	return StatusNone
}

func (p *Pool) reject(tx *Transaction, cb SubmitCallback, status Status) Status {
	rejectedCounter.Inc(1)
	if cb != nil {
		cb(&SubmitResult{Hash: tx.Hash, Status: status})
	}
	log.Debug("reject invalid tx", "tx", tx.Hash, "status", status)
	return status
}

// insert adds tx to the map under the write lock. Reports false if a
// concurrent submit beat this one to the same hash.
func (p *Pool) insert(tx *Transaction) bool {
	p.poolMu.Lock()
	if _, exists := p.txs[tx.Hash]; exists {
		p.poolMu.Unlock()
		return false
	}
	p.txs[tx.Hash] = tx
	p.poolMu.Unlock()

	pendingTxsGauge.Update(int64(p.Size()))
	p.notifyUnsealedSize(0)
	return true
}

// EnforceSubmit is the consensus path used when a peer's block
// references a transaction we must accept, sealing it into
// (batchID, batchHash). A transaction that is unsealed, or only
// provisionally sealed (zero batchHash, the state batchFetchTxs
// leaves behind), is sealed into the incoming proposal; one already
// sealed into the same (batchID, batchHash) is a no-op, and one
// already sealed into a different, concrete proposal is refused with
// StatusAlreadyInTxPool rather than silently reassigned.
func (p *Pool) EnforceSubmit(tx *Transaction, batchID BatchID, batchHash Hash) Status {
	if p.validator != nil {
		if status := p.validator.SubmittedToChain(tx); status == StatusNonceCheckFail {
			return StatusNonceCheckFail
		}
	}

	p.poolMu.Lock()
	existing, ok := p.txs[tx.Hash]
	if !ok {
		p.txs[tx.Hash] = tx
		p.poolMu.Unlock()
		if wasSealed := tx.seal(batchID, batchHash); !wasSealed {
			p.sealedCount.Add(1)
		}
		p.notifyUnsealedSize(0)
		return StatusNone
	}
	p.poolMu.Unlock()

	zeroHash := Hash{}
	existingBatchID, existingHash := existing.batchInfo()
	if existing.isSealed() {
		if existingBatchID == batchID && existingHash == batchHash {
			// Same (batchID, batchHash): already sealed into this exact
			// proposal, nothing to do.
			return StatusNone
		}
		if existingHash != zeroHash {
			// Already sealed into a different, concrete proposal: refuse
			// to move it, matching the original's "only reseal an
			// unsealed or provisionally-sealed (zero batchHash) tx" rule.
			return StatusAlreadyInTxPool
		}
		// existingHash == zero: only provisionally sealed by
		// batchFetchTxs, not yet assigned to a concrete proposal — fall
		// through and let the incoming (batchID, batchHash) claim it.
	}
	wasSealed := existing.seal(batchID, batchHash)
	if !wasSealed {
		p.sealedCount.Add(1)
	}
	p.notifyUnsealedSize(0)
	return StatusNone
}

// BatchVerifyAndSubmitTransaction enforces an entire incoming proposal
// by calling EnforceSubmit on each transaction in turn; each call takes
// the pool lock on its own. Returns false (and stops short) on the
// first transaction EnforceSubmit does not accept. Transactions
// enforced before that failure stay in the pool, sealed into the
// proposal; they are not rolled back.
func (p *Pool) BatchVerifyAndSubmitTransaction(batchID BatchID, batchHash Hash, txs []*Transaction) bool {
	for _, tx := range txs {
		if tx == nil || tx.isInvalid() {
			continue
		}
		if status := p.EnforceSubmit(tx, batchID, batchHash); status != StatusNone {
			log.Warn("batchVerifyAndSubmitTransaction: verify proposal failed", "tx", tx.Hash, "status", status)
			return false
		}
	}
	p.notifyUnsealedSize(0)
	return true
}

// Remove deletes a single transaction, decrementing sealedCount iff it
// was sealed. Returns the removed transaction's snapshot, or false if
// it wasn't present.
func (p *Pool) Remove(hash Hash) (Snapshot, bool) {
	p.poolMu.Lock()
	tx := p.removeLocked(hash)
	p.poolMu.Unlock()
	if tx == nil {
		return Snapshot{}, false
	}
	p.notifyUnsealedSize(0)
	return tx.snapshot(), true
}

// removeLocked must be called with poolMu held for writing.
func (p *Pool) removeLocked(hash Hash) *Transaction {
	tx, ok := p.txs[hash]
	if !ok {
		return nil
	}
	if tx.isSealed() {
		p.sealedCount.Add(-1)
	}
	delete(p.txs, hash)
	return tx
}

// CommitResult is one transaction's outcome in a batchRemove call.
type CommitResult struct {
	Hash   Hash
	Status Status
	Nonce  Nonce
}

// BatchRemove is the block-commit path: remove every transaction named
// by results, update nonce checkers and the committed block number,
// then fire submitter callbacks outside the lock, in result order.
func (p *Pool) BatchRemove(batchID BatchID, results []CommitResult) {
	type removal struct {
		tx     *Transaction
		result CommitResult
	}
	removals := make([]removal, 0, len(results))
	nonces := make([]Nonce, 0, len(results))

	p.poolMu.Lock()
	for _, r := range results {
		tx := p.removeLocked(r.Hash)
		if tx != nil {
			nonces = append(nonces, tx.Nonce)
		} else if r.Nonce != "" {
			nonces = append(nonces, r.Nonce)
		}
		removals = append(removals, removal{tx: tx, result: r})
	}
	if int64(batchID) > p.blockNumber.Load() {
		p.blockNumber.Store(int64(batchID))
	}
	remaining := len(p.txs)
	p.poolMu.Unlock()

	p.onChainCount.Add(uint64(len(results)))
	committedCounter.Inc(int64(len(results)))
	if start := p.tpsStartMS.Load(); start > 0 && remaining == 0 {
		total := nowFunc() - start
		if total > 0 {
			tps := (p.onChainCount.Load() * 1000) / total
			tpsMeter.Mark(int64(tps))
			log.Info("StatTPS", "tps", tps, "totalTime", total)
		}
		p.tpsStartMS.Store(0)
		p.onChainCount.Store(0)
	}

	p.notifyUnsealedSize(0)
	if p.ledgerNonceChecker != nil {
		p.ledgerNonceChecker.BatchInsert(batchID, nonces)
	}
	if p.poolNonceChecker != nil {
		p.poolNonceChecker.BatchRemove(nonces)
	}

	for _, rm := range removals {
		if rm.tx == nil {
			continue
		}
		p.notifyTxResult(rm.tx, CommitResult{Hash: rm.result.Hash, Status: rm.result.Status, Nonce: rm.result.Nonce})
	}
}

func (p *Pool) notifyTxResult(tx *Transaction, r CommitResult) {
	p.feeds.TxFinished.Send(TxFinishedEvent{Hash: r.Hash, Status: r.Status})

	cb := tx.takeCallback()
	if cb == nil {
		return
	}
	defer func() {
		if err := recover(); err != nil {
			log.Warn("notifyTxResult panicked", "tx", tx.Hash, "err", err)
		}
	}()
	cb(&SubmitResult{
		Hash:   r.Hash,
		Status: r.Status,
		Sender: tx.Sender,
		To:     tx.To,
		Nonce:  r.Nonce,
	})
}

// FetchTxs returns the transactions found for the requested hashes and
// the subset that was missing.
func (p *Pool) FetchTxs(hashes []Hash) (found []Snapshot, missed []Hash) {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	for _, h := range hashes {
		tx, ok := p.txs[h]
		if !ok {
			missed = append(missed, h)
			continue
		}
		found = append(found, tx.snapshot())
	}
	return found, missed
}

// FetchNewTxs scans for transactions not yet synced to peers, marking
// each returned one synced, stopping at limit.
func (p *Pool) FetchNewTxs(limit int) []Snapshot {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	out := make([]Snapshot, 0, limit)
	for _, tx := range p.txs {
		if len(out) >= limit {
			break
		}
		if tx == nil || tx.isSynced() {
			continue
		}
		tx.markSynced()
		out = append(out, tx.snapshot())
	}
	return out
}

// TxMeta is the metadata batchFetchTxs emits per selected transaction
// for block assembly, mirroring the original's TransactionMetaData.
type TxMeta struct {
	Hash      Hash
	To        Address
	Attribute uint32
}

// BatchFetchTxs is the block-assembly path. It scans pending
// transactions, filters out invalid/expired/duplicate-sealed/already-
// on-chain ones, seals the rest provisionally, and partitions the
// survivors into system and normal transaction lists, stopping once
// their combined count reaches limit.
func (p *Pool) BatchFetchTxs(limit int, avoid map[Hash]struct{}, avoidDuplicate bool) (normal, sys []TxMeta) {
	if limit <= 0 {
		return nil, nil
	}
	now := nowFunc()

	p.poolMu.RLock()
	for hash, tx := range p.txs {
		if tx == nil {
			continue
		}
		if p.isInvalidLocked(hash) {
			continue
		}
		if avoidDuplicate && tx.isSealed() {
			continue
		}
		snap := tx.snapshot()
		if now > snap.ImportTime+p.cfg.ExpirationMS {
			p.markInvalidLocked(hash, tx.Nonce)
			continue
		}
		if p.validator != nil {
			if status := p.validator.SubmittedToChain(tx); status == StatusNonceCheckFail {
				tx.takeCallback()
				p.markInvalidLocked(hash, tx.Nonce)
				continue
			} else if status == StatusBlockLimitCheckFail {
				p.markInvalidLocked(hash, tx.Nonce)
				continue
			}
		}
		if _, skip := avoid[hash]; skip {
			continue
		}
		meta := TxMeta{Hash: tx.Hash, To: tx.To, Attribute: tx.Attribute}
		if tx.SystemTx {
			sys = append(sys, meta)
		} else {
			normal = append(normal, meta)
		}
		if wasSealed := tx.seal(UnsealedBatchID, Hash{}); !wasSealed {
			p.sealedCount.Add(1)
		}
		if len(normal)+len(sys) >= limit {
			break
		}
	}
	p.poolMu.RUnlock()

	p.notifyUnsealedSize(0)

	p.poolMu.Lock()
	p.removeInvalidTxsLocked()
	p.poolMu.Unlock()

	return normal, sys
}

// isInvalidLocked requires at least poolMu.RLock. It also takes
// invalidMu, since other RLock holders may be appending to invalidTxs.
func (p *Pool) isInvalidLocked(hash Hash) bool {
	p.invalidMu.Lock()
	defer p.invalidMu.Unlock()
	_, ok := p.invalidTxs[hash]
	return ok
}

// markInvalidLocked requires at least poolMu.RLock; invalidTxs /
// invalidNonces are append-only sidebars drained by
// removeInvalidTxsLocked, so concurrent RLock-held appenders racing on
// the same Go map would still be unsafe — this method serializes them
// through invalidMu.
func (p *Pool) markInvalidLocked(hash Hash, nonce Nonce) {
	p.invalidMu.Lock()
	p.invalidTxs[hash] = struct{}{}
	p.invalidNonces[nonce] = struct{}{}
	p.invalidMu.Unlock()
}

// removeInvalidTxsLocked requires poolMu to be held for writing. It
// removes every transaction named in invalidTxs, firing a
// TransactionPoolTimeout result for each, then drops their nonces from
// the pool nonce checker and clears both sidebars.
func (p *Pool) removeInvalidTxsLocked() {
	p.invalidMu.Lock()
	if len(p.invalidTxs) == 0 {
		p.invalidMu.Unlock()
		return
	}
	hashes := make([]Hash, 0, len(p.invalidTxs))
	for h := range p.invalidTxs {
		hashes = append(hashes, h)
	}
	nonces := make([]Nonce, 0, len(p.invalidNonces))
	for n := range p.invalidNonces {
		nonces = append(nonces, n)
	}
	p.invalidTxs = make(map[Hash]struct{})
	p.invalidNonces = make(map[Nonce]struct{})
	p.invalidMu.Unlock()

	invalidTxsGauge.Update(int64(len(hashes)))
	for _, h := range hashes {
		tx := p.removeLocked(h)
		if tx == nil {
			continue
		}
		p.notifyTxResult(tx, CommitResult{Hash: h, Status: StatusTransactionPoolTimeout})
	}
	if p.poolNonceChecker != nil {
		p.poolNonceChecker.BatchRemove(nonces)
	}
	log.Debug("removeInvalidTxs", "size", len(hashes))
}

// BatchMarkTxs seals or unseals a set of hashes into (batchID,
// batchHash). Sealing only touches per-transaction state (each
// transaction serializes its own flag mutation via its own mutex,
// see transaction.go) so it runs under a pool read lock; unsealing is
// pessimistic and runs under the write lock to prevent a concurrent
// seal into a newer batch from being clobbered.
func (p *Pool) BatchMarkTxs(hashes []Hash, batchID BatchID, batchHash Hash, sealFlag bool) {
	if sealFlag {
		p.poolMu.RLock()
		p.batchMarkTxsLocked(hashes, batchID, batchHash, sealFlag)
		p.poolMu.RUnlock()
	} else {
		p.poolMu.Lock()
		p.batchMarkTxsLocked(hashes, batchID, batchHash, sealFlag)
		p.poolMu.Unlock()
	}
	p.notifyUnsealedSize(0)
}

func (p *Pool) batchMarkTxsLocked(hashes []Hash, batchID BatchID, batchHash Hash, sealFlag bool) {
	success := 0
	for _, h := range hashes {
		tx, ok := p.txs[h]
		if !ok {
			continue
		}
		if !sealFlag {
			existingBatchID, existingHash := tx.batchInfo()
			if tx.isSealed() && (existingBatchID != batchID || existingHash != batchHash) {
				// already re-sealed into another proposal, can't
				// enforce-unseal.
				continue
			}
			if wasSealed := tx.unseal(); wasSealed {
				p.sealedCount.Add(-1)
			}
			success++
			continue
		}
		if wasSealed := tx.seal(batchID, batchHash); !wasSealed {
			p.sealedCount.Add(1)
		}
		success++
	}
	log.Debug("batchMarkTxs", "txs", len(hashes), "batchID", batchID, "sealFlag", sealFlag, "success", success)
}

// BatchMarkAll bulk-seals or bulk-unseals every pending transaction.
func (p *Pool) BatchMarkAll(sealFlag bool) {
	p.poolMu.RLock()
	for _, tx := range p.txs {
		if tx == nil {
			continue
		}
		if sealFlag {
			tx.seal(UnsealedBatchID, Hash{})
		} else {
			tx.unseal()
		}
	}
	total := len(p.txs)
	p.poolMu.RUnlock()
	if sealFlag {
		p.sealedCount.Store(int64(total))
	} else {
		p.sealedCount.Store(0)
	}
	p.notifyUnsealedSize(0)
}

// Size returns the number of pending transactions.
func (p *Pool) Size() int {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	return len(p.txs)
}

// UnsealedTxsSize returns max(0, size - sealedCount), clamping
// sealedCount defensively if it has drifted above size.
func (p *Pool) UnsealedTxsSize() int {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	return p.unsealedTxsSizeLocked()
}

// unsealedTxsSizeLocked requires at least poolMu.RLock.
func (p *Pool) unsealedTxsSizeLocked() int {
	size := len(p.txs)
	sealed := p.sealedCount.Load()
	if int64(size) < sealed {
		p.sealedCount.Store(int64(size))
		return 0
	}
	sealedTxsGauge.Update(sealed)
	return size - int(sealed)
}

// BatchVerifyProposal reports which of a proposal's referenced hashes
// this pool does not have.
func (p *Pool) BatchVerifyProposal(hashes []Hash) []Hash {
	if len(hashes) == 0 {
		return nil
	}
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	var missed []Hash
	for _, h := range hashes {
		if _, ok := p.txs[h]; !ok {
			missed = append(missed, h)
		}
	}
	return missed
}

// HasAllTxs reports whether every hash in hashes is known to the pool.
func (p *Pool) HasAllTxs(hashes []Hash) bool {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	for _, h := range hashes {
		if _, ok := p.txs[h]; !ok {
			return false
		}
	}
	return true
}

// GetTxsHash returns up to limit pending hashes, for peer sync /
// gossip announcement.
func (p *Pool) GetTxsHash(limit int) []Hash {
	p.poolMu.RLock()
	defer p.poolMu.RUnlock()
	out := make([]Hash, 0, limit)
	for h, tx := range p.txs {
		if tx == nil {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, h)
	}
	return out
}

// FilterUnknownTxs records peer as a known-holder of every hash this
// pool already has, and returns the subset of hashes this pool has
// never seen (tracking them in a peer-announcement cache bounded by
// PoolLimit so an adversarial peer can't grow it unbounded).
func (p *Pool) FilterUnknownTxs(hashes []Hash, peer PeerID) []Hash {
	p.poolMu.RLock()
	for _, h := range hashes {
		if tx, ok := p.txs[h]; ok {
			tx.appendKnownPeer(peer)
		}
	}
	p.poolMu.RUnlock()

	var unknown []Hash
	p.missedMu.Lock()
	defer p.missedMu.Unlock()
	for _, h := range hashes {
		p.poolMu.RLock()
		_, known := p.txs[h]
		p.poolMu.RUnlock()
		if known {
			continue
		}
		if p.missed.Contains(h) {
			continue
		}
		unknown = append(unknown, h)
		p.missed.Add(h, struct{}{})
	}
	return unknown
}

// Clear removes every pending transaction and both invalid sidebars.
func (p *Pool) Clear() {
	p.poolMu.Lock()
	p.txs = make(map[Hash]*Transaction)
	p.poolMu.Unlock()

	p.invalidMu.Lock()
	p.invalidTxs = make(map[Hash]struct{})
	p.invalidNonces = make(map[Nonce]struct{})
	p.invalidMu.Unlock()

	p.missedMu.Lock()
	p.missed.Purge()
	p.missedMu.Unlock()

	p.sealedCount.Store(0)
	p.notifyUnsealedSize(0)
}

// cleanUpExpired is the timer-driven sweep. It re-arms its own timer
// first (matching the original's restart-then-scan ordering), then
// scans up to maxTraverseTxsCount entries for staleness, skipping
// transactions already flagged invalid or sealed into a batch that
// hasn't yet been superseded by the committed block number.
func (p *Pool) cleanUpExpired() {
	p.cleanupTimer.Restart()

	if p.cfg.CleanupEnabled != nil && !p.cfg.CleanupEnabled() {
		return
	}

	p.poolMu.RLock()
	if len(p.txs) == 0 {
		p.poolMu.RUnlock()
		return
	}
	now := nowFunc()
	blockNumber := p.blockNumber.Load()
	traversed, erased := 0, 0
	for hash, tx := range p.txs {
		if traversed >= maxTraverseTxsCount {
			break
		}
		traversed++
		if p.isInvalidLocked(hash) {
			continue
		}
		batchID, _ := tx.batchInfo()
		if tx.isSealed() && int64(batchID) >= blockNumber {
			continue
		}
		snap := tx.snapshot()
		if now > snap.ImportTime+p.cfg.ExpirationMS {
			p.markInvalidLocked(hash, tx.Nonce)
			erased++
		}
	}
	p.poolMu.RUnlock()

	log.Info("cleanUpExpiredTransactions", "pendingTxs", p.Size(), "erasedTxs", erased)

	p.poolMu.Lock()
	p.removeInvalidTxsLocked()
	p.poolMu.Unlock()
}
