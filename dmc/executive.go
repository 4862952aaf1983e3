package dmc

import "sync"

// ExecutiveState tracks one in-flight call tree's nesting. It is
// created lazily on the first DMC output carrying a given ContextID
// and destroyed once its call stack empties.
type ExecutiveState struct {
	ContextID  ContextID
	CurrentSeq Seq
	CallStack  []Seq
	LastMsg    *ExecutionMessage
}

// pushSeq allocates the next sequence number, pushes it onto the call
// stack, and returns it.
func (e *ExecutiveState) pushSeq() Seq {
	seq := e.CurrentSeq
	e.CurrentSeq++
	e.CallStack = append(e.CallStack, seq)
	return seq
}

// popSeq removes the top of the call stack, reporting whether the
// stack is now empty (the call tree has fully unwound).
func (e *ExecutiveState) popSeq() (empty bool) {
	if len(e.CallStack) == 0 {
		return true
	}
	e.CallStack = e.CallStack[:len(e.CallStack)-1]
	return len(e.CallStack) == 0
}

// ExecutivePool is a shard-local map from ContextID to ExecutiveState,
// guarded by its own mutex since a shard's dispatch loop and the
// scheduler's termination check may inspect it concurrently.
type ExecutivePool struct {
	mu     sync.Mutex
	states map[ContextID]*ExecutiveState
}

// NewExecutivePool constructs an empty pool.
func NewExecutivePool() *ExecutivePool {
	return &ExecutivePool{states: make(map[ContextID]*ExecutiveState)}
}

// Get returns the state for id, or nil if none exists yet.
func (p *ExecutivePool) Get(id ContextID) *ExecutiveState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[id]
}

// Add registers a new state, overwriting any prior entry for the same id.
func (p *ExecutivePool) Add(id ContextID, state *ExecutiveState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[id] = state
}

// Remove deletes a state, used once its call stack empties.
func (p *ExecutivePool) Remove(id ContextID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, id)
}

// Len reports how many call trees are currently in flight.
func (p *ExecutivePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

// Empty reports whether every tracked call tree has unwound; used by
// the scheduler's block-termination check.
func (p *ExecutivePool) Empty() bool {
	return p.Len() == 0
}
