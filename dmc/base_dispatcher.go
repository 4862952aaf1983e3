package dmc

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// ShardRouter locates the dispatcher owning a shard, creating one
// lazily if it doesn't exist yet. Implemented by Scheduler; kept as an
// interface here so baseDispatcher never imports its owner.
type ShardRouter interface {
	DispatcherFor(shard Address) *ShardDispatcher
}

// baseDispatcher is the common dispatch loop: prepared-message
// staging, output routing by (to, type), call-stack bookkeeping and
// termination detection. ShardDispatcher embeds it and supplies the
// executor-facing strategy.
type baseDispatcher struct {
	contractAddress Address

	mu               sync.Mutex
	preparedMessages []*ExecutionMessage
	status           Status

	executivePool *ExecutivePool
	keyLocks      *KeyLockTable
	router        ShardRouter

	onTxFinished  func(*ExecutionMessage)
	triggerSwitch func()
}

func newBaseDispatcher(shard Address, router ShardRouter, onTxFinished func(*ExecutionMessage), triggerSwitch func()) baseDispatcher {
	return baseDispatcher{
		contractAddress: shard,
		status:          StatusIdle,
		executivePool:   NewExecutivePool(),
		keyLocks:        NewKeyLockTable(),
		router:          router,
		onTxFinished:    onTxFinished,
		triggerSwitch:   triggerSwitch,
	}
}

// submit appends msg to the staged batch, moving IDLE -> STAGING.
func (d *baseDispatcher) submit(msg *ExecutionMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handleCreateMessage(msg)
	d.preparedMessages = append(d.preparedMessages, msg)
	if d.status == StatusIdle {
		d.status = StatusStaging
	}
}

// handleCreateMessage performs the context-id bookkeeping the original
// base DMC dispatcher does on first sight of a message: ensure it has
// an ExecutiveState and a stamped Seq before it's staged.
func (d *baseDispatcher) handleCreateMessage(msg *ExecutionMessage) {
	state := d.executivePool.Get(msg.ContextID)
	if state == nil {
		state = &ExecutiveState{ContextID: msg.ContextID}
		d.executivePool.Add(msg.ContextID, state)
	}
	msg.Seq = state.pushSeq()
	state.LastMsg = msg
}

// status reports the dispatcher's current per-block state.
func (d *baseDispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// handleExecutiveOutputs routes each output by (to, type): messages
// addressed to a different shard are forwarded to that shard's
// dispatcher; FINISHED/REVERT pop the call stack and fire onTxFinished
// once the stack empties; KEY_LOCK parks the message until released.
// Everything else stays local and is handed back to the caller for
// further local dispatch (ShardDispatcher wires this into its own
// next batch).
func (d *baseDispatcher) handleExecutiveOutputs(outputs []*ExecutionMessage) (local []*ExecutionMessage) {
	for _, out := range outputs {
		if out.To != d.contractAddress {
			// Control for this context is handing off to another
			// shard; release our local tracking so Idle() doesn't
			// wait forever on a call tree we no longer own.
			d.executivePool.Remove(out.ContextID)
			if d.router != nil {
				d.router.DispatcherFor(out.To).submit(out)
			} else {
				log.Error("dmc: output addressed to unrouted shard", "to", out.To)
			}
			continue
		}

		switch out.Type {
		case MessageTypeFinished, MessageTypeRevert:
			d.completeOutput(out)
		case MessageTypeKeyLock:
			d.keyLocks.Wait(out.KeyLockKey, out)
		default:
			local = append(local, out)
		}
	}
	return local
}

// completeOutput pops the call stack for out's context, firing
// onTxFinished once the whole call tree has unwound.
func (d *baseDispatcher) completeOutput(out *ExecutionMessage) {
	state := d.executivePool.Get(out.ContextID)
	if state == nil {
		log.Error("dmc: completion for unknown context", "contextID", out.ContextID)
		if d.onTxFinished != nil {
			d.onTxFinished(out)
		}
		return
	}
	if empty := state.popSeq(); empty {
		d.executivePool.Remove(out.ContextID)
		if d.onTxFinished != nil {
			d.onTxFinished(out)
		}
	}
}

// ReleaseKeyLock resumes every message waiting on key, staging them
// for the next dispatch round.
func (d *baseDispatcher) ReleaseKeyLock(key string) {
	waiters := d.keyLocks.Unlock(key)
	if len(waiters) == 0 {
		return
	}
	d.mu.Lock()
	d.preparedMessages = append(d.preparedMessages, waiters...)
	if d.status == StatusPaused || d.status == StatusFinished {
		d.status = StatusStaging
	}
	d.mu.Unlock()
}

// hasStaged reports whether any message is currently staged for the
// next dispatch round.
func (d *baseDispatcher) hasStaged() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.preparedMessages) > 0
}

// Idle reports whether the dispatcher has no staged work, no pending
// executive states, and no outstanding key locks — used by the
// scheduler to decide a shard no longer participates in block
// termination.
func (d *baseDispatcher) Idle() bool {
	d.mu.Lock()
	staged := len(d.preparedMessages)
	status := d.status
	d.mu.Unlock()
	if staged > 0 {
		return false
	}
	if status == StatusDispatching || status == StatusPreExecuting {
		return false
	}
	if !d.executivePool.Empty() {
		return false
	}
	return d.keyLocks.Empty()
}
