package dmc

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// ShardDispatcher is the per-contract-shard DMC state machine. "How to
// turn a batch of prepared messages into outputs" is injected as the
// Executor strategy (spec.md §9's "strategy interface ... not as
// subclass inheritance") rather than baked into the dispatch loop:
// baseDispatcher owns staging, routing and termination bookkeeping,
// and ShardDispatcher is the one concrete strategy that drives it
// against a real Executor.
type ShardDispatcher struct {
	baseDispatcher

	executor Executor
	termID   int64
	header   BlockHeader

	preExecuteMu sync.Mutex
}

// NewShardDispatcher constructs a dispatcher for one contract shard
// within one block.
func NewShardDispatcher(shard Address, executor Executor, termID int64, header BlockHeader, router ShardRouter, onTxFinished func(*ExecutionMessage), triggerSwitch func()) *ShardDispatcher {
	return &ShardDispatcher{
		baseDispatcher: newBaseDispatcher(shard, router, onTxFinished, triggerSwitch),
		executor:       executor,
		termID:         termID,
		header:         header,
	}
}

// Submit stages message for this block's batch. withDAG is accepted
// for interface parity with the original scheduler call site but
// unused here, mirroring ShardingDmcExecutor::submit's "(void)withDAG".
func (d *ShardDispatcher) Submit(msg *ExecutionMessage, withDAG bool) {
	_ = withDAG
	d.submit(msg)
}

// PreExecute speculatively warms the executor with the currently
// staged batch. It takes the staged messages under the pre-execute
// lock so a concurrent ShardGo call blocks until this completes; on
// executor failure the messages are restored so the later ShardGo call
// retries against the full batch.
func (d *ShardDispatcher) PreExecute() {
	d.preExecuteMu.Lock()

	d.mu.Lock()
	msgs := d.preparedMessages
	d.preparedMessages = nil
	d.mu.Unlock()

	if len(msgs) == 0 {
		d.preExecuteMu.Unlock()
		return
	}

	d.mu.Lock()
	d.status = StatusPreExecuting
	d.mu.Unlock()

	log.Debug("dmc: send preExecute message", "shard", d.contractAddress, "txNum", len(msgs))
	d.executor.PreExecuteTransactions(d.termID, d.header, d.contractAddress, msgs, func(err error) {
		defer d.preExecuteMu.Unlock()
		if err != nil {
			d.mu.Lock()
			d.preparedMessages = append(msgs, d.preparedMessages...)
			d.status = StatusStaging
			d.mu.Unlock()
			log.Debug("dmc: preExecute failed, restoring messages", "shard", d.contractAddress, "err", err)
			return
		}
		log.Debug("dmc: preExecute succeeded", "shard", d.contractAddress)
	})
}

// ShardGo drains the staged batch and dispatches it. It waits for any
// in-flight PreExecute to finish (same lock), then runs either the
// single-static-call fast path or the full batch path.
func (d *ShardDispatcher) ShardGo(cb func(error, Status)) {
	d.preExecuteMu.Lock()

	d.mu.Lock()
	msgs := d.preparedMessages
	d.preparedMessages = nil
	d.status = StatusDispatching
	d.mu.Unlock()
	d.preExecuteMu.Unlock()

	if len(msgs) == 1 && msgs[0].StaticCall {
		d.shardGoStaticCall(msgs[0], cb)
		return
	}
	d.shardGoBatch(msgs, cb)
}

// shardGoStaticCall is the single-static-call fast path: one call to
// executor.Call instead of the batch path, terminating the dispatcher
// with PAUSED (the caller/scheduler drives any further progress).
func (d *ShardDispatcher) shardGoStaticCall(msg *ExecutionMessage, cb func(error, Status)) {
	log.Trace("dmc: send call request", "shard", d.contractAddress, "contextID", msg.ContextID)
	d.executor.Call(msg, func(err error, output *ExecutionMessage) {
		if err != nil {
			log.Error("dmc: call error", "shard", d.contractAddress, "err", err)
			if IsTermIDMismatch(err) {
				d.triggerSwitch()
			}
			d.setStatus(StatusError)
			cb(err, StatusError)
			return
		}
		d.executivePool.Remove(msg.ContextID)
		if d.onTxFinished != nil {
			d.onTxFinished(output)
		}
		d.setStatus(StatusPaused)
		cb(nil, StatusPaused)
	})
}

// shardGoBatch is the general path: hand the whole staged batch to
// executor.ExecuteTransactions. An empty batch is still sent — per
// spec.md §9's resolved open question — so the executor can drain any
// cached completions from a prior PreExecute.
func (d *ShardDispatcher) shardGoBatch(msgs []*ExecutionMessage, cb func(error, Status)) {
	log.Debug("dmc: send to executor", "shard", d.contractAddress, "txNum", len(msgs))
	d.executor.ExecuteTransactions(d.contractAddress, msgs, func(err error, outputs []*ExecutionMessage) {
		if err != nil {
			log.Error("dmc: execute transactions error", "shard", d.contractAddress, "err", err)
			if IsTermIDMismatch(err) {
				d.triggerSwitch()
			}
			d.setStatus(StatusError)
			cb(err, StatusError)
			return
		}
		d.handleShardGoOutput(outputs)
		d.setStatus(StatusFinished)
		cb(nil, StatusFinished)
	})
}

// handleShardGoOutput splits raw executor outputs into terminal ones
// (FINISHED/REVERT, handed directly to onTxFinished) and DMC
// continuations, which go through handleExecutiveOutputs.
func (d *ShardDispatcher) handleShardGoOutput(outputs []*ExecutionMessage) {
	var continuations []*ExecutionMessage
	for _, out := range outputs {
		if out.Type == MessageTypeFinished || out.Type == MessageTypeRevert {
			// The call tree is done regardless of how much of its call
			// stack this shard happened to be holding; drop our local
			// state for it before firing the terminal callback.
			d.executivePool.Remove(out.ContextID)
			if d.onTxFinished != nil {
				d.onTxFinished(out)
			}
			continue
		}
		continuations = append(continuations, out)
	}
	d.handleExecutiveOutputs(continuations)
}

// handleExecutiveOutputs shadows baseDispatcher's method to ensure
// every continuation has an ExecutiveState before routing: a DMC
// output reaching this shard for the first time gets a fresh state
// with seq 0 pushed onto its call stack.
func (d *ShardDispatcher) handleExecutiveOutputs(outputs []*ExecutionMessage) {
	for _, out := range outputs {
		if d.executivePool.Get(out.ContextID) == nil {
			state := &ExecutiveState{ContextID: out.ContextID}
			out.Seq = state.pushSeq()
			d.executivePool.Add(out.ContextID, state)
		}
	}
	local := d.baseDispatcher.handleExecutiveOutputs(outputs)
	if len(local) == 0 {
		return
	}
	d.mu.Lock()
	d.preparedMessages = append(d.preparedMessages, local...)
	d.status = StatusStaging
	d.mu.Unlock()
}

func (d *ShardDispatcher) setStatus(s Status) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}
