package dmc

import "sync"

// KeyLockTable tracks which ExecutionMessages are paused on a
// KEY_LOCK and resumes them when the block scheduler releases the
// lock. spec.md names KEY_LOCK as a pause condition without
// specifying what releases it; this is the resolution recorded in
// DESIGN.md: release is always an explicit call from the scheduler,
// never inferred from another dispatch event.
type KeyLockTable struct {
	mu      sync.Mutex
	waiters map[string][]*ExecutionMessage
}

// NewKeyLockTable constructs an empty table.
func NewKeyLockTable() *KeyLockTable {
	return &KeyLockTable{waiters: make(map[string][]*ExecutionMessage)}
}

// Wait parks msg on key, to be returned by the next Unlock(key) call.
func (t *KeyLockTable) Wait(key string, msg *ExecutionMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.waiters[key] = append(t.waiters[key], msg)
}

// Unlock releases every message waiting on key and returns them for
// redispatch.
func (t *KeyLockTable) Unlock(key string) []*ExecutionMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	waiting := t.waiters[key]
	delete(t.waiters, key)
	return waiting
}

// Locked reports whether any message is currently waiting on key.
func (t *KeyLockTable) Locked(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters[key]) > 0
}

// Empty reports whether no keys are currently locked, used by the
// scheduler's block-termination check ("blocked on external events
// that cannot resolve" is the operator's call — an empty table means
// nothing is waiting).
func (t *KeyLockTable) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters) == 0
}
