package dmc

import (
	"sync"

	"github.com/JekaMas/workerpool"
	"github.com/ethereum/go-ethereum/log"
)

// Scheduler is the block-level owner of one ShardDispatcher per
// contract shard, created lazily as messages surface new shards (the
// original's "the block scheduler creates dispatchers lazily" data
// flow note, never given its own operation list in spec.md). It fans
// ShardGo calls for the shards with staged work out across a bounded
// worker pool — "many shards execute in parallel" (spec.md §5) — and
// decides when the block has terminated.
type Scheduler struct {
	executor     Executor
	termID       int64
	header       BlockHeader
	onTxFinished func(*ExecutionMessage)

	mu          sync.Mutex
	dispatchers map[Address]*ShardDispatcher
	switched    bool

	pool *workerpool.WorkerPool
}

// NewScheduler constructs a Scheduler for one block. concurrency
// bounds how many shards dispatch concurrently; pass 0 for a sane
// default.
func NewScheduler(executor Executor, termID int64, header BlockHeader, onTxFinished func(*ExecutionMessage), concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Scheduler{
		executor:     executor,
		termID:       termID,
		header:       header,
		onTxFinished: onTxFinished,
		dispatchers:  make(map[Address]*ShardDispatcher),
		pool:         workerpool.New(concurrency),
	}
}

// DispatcherFor returns shard's dispatcher, creating it if this is the
// first message seen for that contract address. Implements ShardRouter
// so baseDispatcher can forward cross-shard outputs without importing
// Scheduler.
func (s *Scheduler) DispatcherFor(shard Address) *ShardDispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dispatchers[shard]
	if ok {
		return d
	}
	d = NewShardDispatcher(shard, s.executor, s.termID, s.header, s, s.onTxFinished, s.triggerSwitch)
	s.dispatchers[shard] = d
	return d
}

// Submit routes msg to its destination shard's dispatcher, creating
// that dispatcher lazily.
func (s *Scheduler) Submit(msg *ExecutionMessage, withDAG bool) {
	s.DispatcherFor(msg.To).Submit(msg, withDAG)
}

// triggerSwitch marks the block abandoned due to a term-id mismatch;
// every shard's enclosing dispatch round must check Switched before
// continuing.
func (s *Scheduler) triggerSwitch() {
	s.mu.Lock()
	s.switched = true
	s.mu.Unlock()
	log.Warn("dmc: scheduler term id mismatch, triggering switch")
}

// Switched reports whether a term-id mismatch has abandoned this block.
func (s *Scheduler) Switched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switched
}

// PreExecuteAll speculatively warms every shard with current staged
// work, in parallel.
func (s *Scheduler) PreExecuteAll() {
	s.mu.Lock()
	dispatchers := make([]*ShardDispatcher, 0, len(s.dispatchers))
	for _, d := range s.dispatchers {
		dispatchers = append(dispatchers, d)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range dispatchers {
		d := d
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			d.PreExecute()
		})
	}
	wg.Wait()
}

// RunRound drives one dispatch round: every shard currently holding
// staged messages, or whose staged batch was consumed by a successful
// PreExecute, runs ShardGo concurrently, and any resulting
// cross-shard forwards become next round's staged work automatically
// (handleExecutiveOutputs re-stages them on the destination
// dispatcher). Returns once every shard in this round has reported.
func (s *Scheduler) RunRound() {
	s.mu.Lock()
	dispatchers := make([]*ShardDispatcher, 0, len(s.dispatchers))
	for _, d := range s.dispatchers {
		if d.hasStaged() || d.Status() == StatusPreExecuting {
			dispatchers = append(dispatchers, d)
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range dispatchers {
		d := d
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			done := make(chan struct{})
			d.ShardGo(func(err error, status Status) {
				if err != nil {
					log.Error("dmc: shard dispatch failed", "shard", d.contractAddress, "status", status, "err", err)
				}
				close(done)
			})
			<-done
		})
	}
	wg.Wait()
}

// Terminated reports whether every dispatcher is idle (spec.md §4.3:
// "when every dispatcher reports FINISHED or PAUSED and every
// executive stack is empty ... the block is sealed").
func (s *Scheduler) Terminated() bool {
	s.mu.Lock()
	dispatchers := make([]*ShardDispatcher, 0, len(s.dispatchers))
	for _, d := range s.dispatchers {
		dispatchers = append(dispatchers, d)
	}
	s.mu.Unlock()

	for _, d := range dispatchers {
		if !d.Idle() {
			return false
		}
	}
	return true
}

// ReleaseKeyLock resumes any message blocked on key across every
// shard, re-staging it for the next RunRound.
func (s *Scheduler) ReleaseKeyLock(key string) {
	s.mu.Lock()
	dispatchers := make([]*ShardDispatcher, 0, len(s.dispatchers))
	for _, d := range s.dispatchers {
		dispatchers = append(dispatchers, d)
	}
	s.mu.Unlock()

	for _, d := range dispatchers {
		d.ReleaseKeyLock(key)
	}
}

// Run drives the scheduler to termination: pre-execute, then
// alternate dispatch rounds until every shard is idle or the block is
// switched away.
func (s *Scheduler) Run() {
	s.PreExecuteAll()
	for !s.Terminated() && !s.Switched() {
		s.RunRound()
	}
}

// Stop releases the scheduler's worker pool. Must be called once the
// block is done with this scheduler.
func (s *Scheduler) Stop() {
	s.pool.StopWait()
}
