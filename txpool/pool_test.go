package txpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeValidator's Verify approves everything; rejectNonces denies a
// fixed set of nonces from SubmittedToChain, modeling an
// already-committed nonce.
type fakeValidator struct {
	rejectNonces map[Nonce]struct{}
}

func (v *fakeValidator) Verify(tx *Transaction) Status { return StatusNone }

func (v *fakeValidator) SubmittedToChain(tx *Transaction) Status {
	if v.rejectNonces != nil {
		if _, ok := v.rejectNonces[tx.Nonce]; ok {
			return StatusNonceCheckFail
		}
	}
	return StatusNone
}

type fakeNonceChecker struct {
	mu        sync.Mutex
	inserted  []Nonce
	removed   []Nonce
}

func (c *fakeNonceChecker) BatchInsert(batchID BatchID, nonces []Nonce) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserted = append(c.inserted, nonces...)
}

func (c *fakeNonceChecker) BatchRemove(nonces []Nonce) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = append(c.removed, nonces...)
}

func newTestPool() *Pool {
	return New(Config{
		PoolLimit:       16,
		ExpirationMS:    10_000,
		CleanupInterval: time.Hour,
	}, &fakeValidator{}, &fakeNonceChecker{}, &fakeNonceChecker{}, nil)
}

// submitPending submits tx from its own goroutine, because Submit only
// returns once the transaction has left the pool, and waits until tx is
// pending. The returned channel receives Submit's eventual result. The
// error is non-nil if tx was rejected or did not become pending within
// a second.
func submitPending(p *Pool, tx *Transaction) (<-chan *SubmitResult, error) {
	resultCh := make(chan *SubmitResult, 1)
	go func() {
		if r, err := p.Submit(context.Background(), tx); err == nil {
			resultCh <- r
		}
	}()
	deadline := time.After(time.Second)
	for {
		if _, missed := p.FetchTxs([]Hash{tx.Hash}); len(missed) == 0 {
			return resultCh, nil
		}
		select {
		case r := <-resultCh:
			return nil, errors.New("submit rejected: " + r.Status.String())
		case <-deadline:
			return nil, errors.New("transaction never became pending")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSubmitRejectsDuplicateHash(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})

	ctx := context.Background()
	_, err := submitPending(p, tx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size())

	dup := NewTransaction(Payload{Hash: Hash{1}, Nonce: "b"})
	r2, err := p.Submit(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyInTxPool, r2.Status)
	assert.Equal(t, 1, p.Size())
}

func TestSubmitRejectsWhenPoolFull(t *testing.T) {
	p := New(Config{PoolLimit: 1, ExpirationMS: 10_000, CleanupInterval: time.Hour}, &fakeValidator{}, nil, nil, nil)
	ctx := context.Background()

	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}}))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size())

	r2, err := p.Submit(ctx, NewTransaction(Payload{Hash: Hash{2}}))
	require.NoError(t, err)
	assert.Equal(t, StatusTxPoolIsFull, r2.Status)
}

func TestBatchImportBypassesPoolLimitAndToleratesFailures(t *testing.T) {
	p := New(Config{PoolLimit: 1, ExpirationMS: 10_000, CleanupInterval: time.Hour}, &fakeValidator{}, nil, nil, nil)

	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}}))
	require.NoError(t, err)
	require.Equal(t, 1, p.Size(), "pool at its configured limit")

	p.BatchImport([]*Transaction{
		NewTransaction(Payload{Hash: Hash{2}}),
		NewTransaction(Payload{Hash: Hash{1}}), // duplicate of the already-pending tx; tolerated silently
		NewTransaction(Payload{Hash: Hash{3}}),
	})

	assert.Equal(t, 3, p.Size(), "batchImport must accept txs past pool_limit and skip the duplicate without failing the batch")
}

func TestSubmitAcceptsTxThatOnlySubmittedToChainRejects(t *testing.T) {
	p := New(Config{PoolLimit: 16, ExpirationMS: 10_000, CleanupInterval: time.Hour},
		&fakeValidator{rejectNonces: map[Nonce]struct{}{"bad": {}}}, nil, nil, nil)

	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "bad"}))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size(), "Verify doesn't consult rejectNonces, only SubmittedToChain does")
}

func TestSubmitResolvesOnBatchRemove(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a", Sender: Address{1}})

	resultCh := make(chan *SubmitResult, 1)
	go func() {
		r, err := p.Submit(context.Background(), tx)
		if err == nil {
			resultCh <- r
		}
	}()

	// Give Submit a chance to insert before we remove it.
	for p.Size() == 0 {
		time.Sleep(time.Millisecond)
	}

	p.BatchRemove(BatchID(1), []CommitResult{{Hash: Hash{1}, Status: StatusNone, Nonce: "a"}})

	select {
	case r := <-resultCh:
		assert.Equal(t, StatusNone, r.Status)
		assert.Equal(t, Hash{1}, r.Hash)
	case <-time.After(time.Second):
		t.Fatal("submit result never resolved")
	}
	assert.Equal(t, 0, p.Size())
}

func TestEnforceSubmitSealsNewOrExistingTransaction(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})

	status := p.EnforceSubmit(tx, BatchID(5), Hash{5})
	require.Equal(t, StatusNone, status)
	assert.Equal(t, 1, p.Size())

	found, missed := p.FetchTxs([]Hash{{1}})
	require.Len(t, found, 1)
	require.Len(t, missed, 0)
	assert.True(t, found[0].Sealed)
	assert.Equal(t, BatchID(5), found[0].BatchID)
}

func TestEnforceSubmitOnAlreadyPendingTransaction(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	status := p.EnforceSubmit(tx, BatchID(2), Hash{2})
	assert.Equal(t, StatusNone, status)
	batchID, hash := tx.batchInfo()
	assert.Equal(t, BatchID(2), batchID)
	assert.Equal(t, Hash{2}, hash)
}

func TestEnforceSubmitRejectsResealIntoDifferentConcreteBatch(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})

	status := p.EnforceSubmit(tx, BatchID(1), Hash{1})
	require.Equal(t, StatusNone, status)

	status = p.EnforceSubmit(tx, BatchID(2), Hash{2})
	assert.Equal(t, StatusAlreadyInTxPool, status)

	batchID, hash := tx.batchInfo()
	assert.Equal(t, BatchID(1), batchID, "a tx sealed into a concrete proposal must not be reassigned")
	assert.Equal(t, Hash{1}, hash)
}

func TestEnforceSubmitAcceptsResealOfProvisionallySealedTransaction(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	normal, sys := p.BatchFetchTxs(10, nil, true)
	require.Len(t, normal, 1)
	require.Len(t, sys, 0)
	batchID, hash := tx.batchInfo()
	assert.Equal(t, UnsealedBatchID, batchID)
	assert.Equal(t, Hash{}, hash)

	status := p.EnforceSubmit(tx, BatchID(7), Hash{7})
	assert.Equal(t, StatusNone, status)

	batchID, hash = tx.batchInfo()
	assert.Equal(t, BatchID(7), batchID)
	assert.Equal(t, Hash{7}, hash)
}

func TestBatchRemoveUpdatesNonceCheckersAndBlockNumber(t *testing.T) {
	poolChecker := &fakeNonceChecker{}
	ledgerChecker := &fakeNonceChecker{}
	p := New(Config{PoolLimit: 16, ExpirationMS: 10_000, CleanupInterval: time.Hour},
		&fakeValidator{}, poolChecker, ledgerChecker, nil)

	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	p.BatchRemove(BatchID(9), []CommitResult{{Hash: Hash{1}, Status: StatusNone, Nonce: "a"}})

	assert.Equal(t, int64(9), p.blockNumber.Load())
	assert.Contains(t, ledgerChecker.inserted, Nonce("a"))
	assert.Contains(t, poolChecker.removed, Nonce("a"))
}

func TestBatchFetchTxsSealsAndPartitionsSystemTxs(t *testing.T) {
	p := newTestPool()
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)
	_, err = submitPending(p, NewTransaction(Payload{Hash: Hash{2}, Nonce: "b", SystemTx: true}))
	require.NoError(t, err)

	normal, sys := p.BatchFetchTxs(10, nil, true)
	assert.Len(t, normal, 1)
	assert.Len(t, sys, 1)
	assert.Equal(t, Hash{2}, sys[0].Hash)
	assert.Equal(t, Hash{1}, normal[0].Hash)

	// A second fetch with avoidDuplicate=true must skip already-sealed txs.
	normal2, sys2 := p.BatchFetchTxs(10, nil, true)
	assert.Len(t, normal2, 0)
	assert.Len(t, sys2, 0)
}

func TestBatchFetchTxsStopsAtLimit(t *testing.T) {
	p := newTestPool()
	for i := byte(1); i <= 5; i++ {
		_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{i}, Nonce: Nonce([]byte{i})}))
		require.NoError(t, err)
	}
	normal, sys := p.BatchFetchTxs(2, nil, true)
	assert.Equal(t, 2, len(normal)+len(sys))
}

func TestBatchFetchTxsEvictsExpiredTransactions(t *testing.T) {
	p := newTestPool()
	restore := nowFunc
	base := uint64(1_000_000)
	nowFunc = func() uint64 { return base }
	defer func() { nowFunc = restore }()

	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	nowFunc = func() uint64 { return base + p.cfg.ExpirationMS + 1 }
	normal, sys := p.BatchFetchTxs(10, nil, true)
	assert.Len(t, normal, 0)
	assert.Len(t, sys, 0)
	assert.Equal(t, 0, p.Size(), "expired transaction must be removed")
}

func TestBatchFetchTxsExcludesNonceCheckFailures(t *testing.T) {
	p := New(Config{PoolLimit: 16, ExpirationMS: 10_000, CleanupInterval: time.Hour},
		&fakeValidator{rejectNonces: map[Nonce]struct{}{"stale": {}}}, nil, nil, nil)
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "stale"}))
	require.NoError(t, err)

	normal, sys := p.BatchFetchTxs(10, nil, true)
	assert.Len(t, normal, 0)
	assert.Len(t, sys, 0)
	assert.Equal(t, 0, p.Size())
}

func TestBatchMarkTxsSealAndUnseal(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	originalSealedCount := p.sealedCount.Load()

	p.BatchMarkTxs([]Hash{{1}}, BatchID(1), Hash{1}, true)
	assert.True(t, tx.isSealed())
	assert.Equal(t, originalSealedCount+1, p.sealedCount.Load())

	p.BatchMarkTxs([]Hash{{1}}, BatchID(1), Hash{1}, false)
	assert.False(t, tx.isSealed())
	assert.Equal(t, originalSealedCount, p.sealedCount.Load(), "seal then unseal must restore sealedCount to its original value")
}

func TestEnforceSubmitIsIdempotentForSameBatch(t *testing.T) {
	p := newTestPool()
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})

	status1 := p.EnforceSubmit(tx, BatchID(5), Hash{5})
	require.Equal(t, StatusNone, status1)
	sealedAfterFirst := p.sealedCount.Load()

	status2 := p.EnforceSubmit(tx, BatchID(5), Hash{5})
	require.Equal(t, StatusNone, status2)
	assert.Equal(t, sealedAfterFirst, p.sealedCount.Load(), "re-enforcing the same (batchID, batchHash) must not double-increment sealedCount")
}

func TestCleanUpExpiredEvictsStaleTransactionsAndFiresTimeoutCallback(t *testing.T) {
	p := New(Config{PoolLimit: 16, ExpirationMS: 100, CleanupInterval: time.Hour}, &fakeValidator{}, &fakeNonceChecker{}, &fakeNonceChecker{}, nil)
	restore := nowFunc
	defer func() { nowFunc = restore }()

	base := uint64(1_000_000)
	nowFunc = func() uint64 { return base }

	var gotStatus Status
	resultCh := make(chan *SubmitResult, 1)
	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	tx.setImportTime(base)
	tx.setCallback(func(r *SubmitResult) { resultCh <- r })
	require.True(t, p.insert(tx))

	// Fresh at exactly import_time+expiration: strict '>' is required to expire.
	nowFunc = func() uint64 { return base + 100 }
	p.cleanUpExpired()
	assert.Equal(t, 1, p.Size(), "a transaction at exactly its expiration boundary must not be evicted")

	nowFunc = func() uint64 { return base + 101 }
	p.cleanUpExpired()
	assert.Equal(t, 0, p.Size(), "a transaction past its expiration boundary must be evicted")

	select {
	case r := <-resultCh:
		gotStatus = r.Status
	default:
		t.Fatal("expected the submit callback to fire on expiration")
	}
	assert.Equal(t, StatusTransactionPoolTimeout, gotStatus)
}

func TestBatchVerifyAndSubmitTransactionStopsOnFirstFailure(t *testing.T) {
	p := New(Config{PoolLimit: 16, ExpirationMS: 10_000, CleanupInterval: time.Hour},
		&fakeValidator{rejectNonces: map[Nonce]struct{}{"bad": {}}}, nil, nil, nil)

	ok := p.BatchVerifyAndSubmitTransaction(BatchID(1), Hash{1}, []*Transaction{
		NewTransaction(Payload{Hash: Hash{1}, Nonce: "good"}),
		NewTransaction(Payload{Hash: Hash{2}, Nonce: "bad"}),
		NewTransaction(Payload{Hash: Hash{3}, Nonce: "good2"}),
	})
	assert.False(t, ok)
}

func TestFilterUnknownTxsTracksMissedOnce(t *testing.T) {
	p := newTestPool()
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)

	unknown := p.FilterUnknownTxs([]Hash{{1}, {2}}, PeerID("peerA"))
	assert.Equal(t, []Hash{{2}}, unknown)

	unknownAgain := p.FilterUnknownTxs([]Hash{{2}}, PeerID("peerA"))
	assert.Len(t, unknownAgain, 0, "a hash already recorded as missed should not repeat")
}

func TestUnsealedTxsSizeReflectsSealedCount(t *testing.T) {
	p := newTestPool()
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)
	_, err = submitPending(p, NewTransaction(Payload{Hash: Hash{2}, Nonce: "b"}))
	require.NoError(t, err)

	assert.Equal(t, 2, p.UnsealedTxsSize())
	p.BatchFetchTxs(10, nil, true)
	assert.Equal(t, 0, p.UnsealedTxsSize())
}

func TestClearResetsEverything(t *testing.T) {
	p := newTestPool()
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)
	p.Clear()
	assert.Equal(t, 0, p.Size())
	assert.Equal(t, 0, p.UnsealedTxsSize())
}

func TestBatchVerifyProposalReportsMissingHashes(t *testing.T) {
	p := newTestPool()
	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)

	missed := p.BatchVerifyProposal([]Hash{{1}, {2}})
	assert.Equal(t, []Hash{{2}}, missed)
	assert.True(t, p.HasAllTxs([]Hash{{1}}))
	assert.False(t, p.HasAllTxs([]Hash{{1}, {2}}))
}
