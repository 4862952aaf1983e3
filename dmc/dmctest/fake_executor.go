// Package dmctest provides a deterministic in-memory dmc.Executor for
// tests, standing in for the real executor backend that spec.md names
// as an explicit Non-goal.
package dmctest

import (
	"sync"

	"github.com/shardhain/txcore/dmc"
)

// Script lets a test script a FakeExecutor's response to a specific
// contract address, keyed by shard. Responses are consumed in order;
// the last one repeats once exhausted.
type Script struct {
	// ExecuteResults maps shard -> queued (outputs, err) pairs returned
	// from ExecuteTransactions.
	ExecuteResults map[dmc.Address][]ExecuteResult
	// CallResults maps shard -> queued (output, err) pairs returned
	// from Call.
	CallResults map[dmc.Address][]CallResult
}

// ExecuteResult is one scripted response to ExecuteTransactions.
type ExecuteResult struct {
	Outputs []*dmc.ExecutionMessage
	Err     error
}

// CallResult is one scripted response to Call.
type CallResult struct {
	Output *dmc.ExecutionMessage
	Err    error
}

// FakeExecutor answers PreExecuteTransactions unconditionally with
// success and ExecuteTransactions/Call from a Script, invoking
// callbacks synchronously (in-process tests don't need real async
// latency to exercise dispatch ordering).
type FakeExecutor struct {
	mu     sync.Mutex
	script Script

	PreExecuteCalls int
	ExecuteCalls    int
	CallCalls       int
}

// NewFakeExecutor constructs an executor driven by script.
func NewFakeExecutor(script Script) *FakeExecutor {
	return &FakeExecutor{script: script}
}

func (f *FakeExecutor) PreExecuteTransactions(termID int64, header dmc.BlockHeader, shard dmc.Address, msgs []*dmc.ExecutionMessage, cb func(error)) {
	f.mu.Lock()
	f.PreExecuteCalls++
	f.mu.Unlock()
	cb(nil)
}

func (f *FakeExecutor) ExecuteTransactions(shard dmc.Address, msgs []*dmc.ExecutionMessage, cb func(error, []*dmc.ExecutionMessage)) {
	f.mu.Lock()
	f.ExecuteCalls++
	queue := f.script.ExecuteResults[shard]
	var result ExecuteResult
	if len(queue) > 0 {
		result = queue[0]
		if len(queue) > 1 {
			f.script.ExecuteResults[shard] = queue[1:]
		}
	}
	f.mu.Unlock()
	cb(result.Err, result.Outputs)
}

func (f *FakeExecutor) Call(msg *dmc.ExecutionMessage, cb func(error, *dmc.ExecutionMessage)) {
	f.mu.Lock()
	f.CallCalls++
	queue := f.script.CallResults[msg.To]
	var result CallResult
	if len(queue) > 0 {
		result = queue[0]
		if len(queue) > 1 {
			f.script.CallResults[msg.To] = queue[1:]
		}
	}
	f.mu.Unlock()
	cb(result.Err, result.Output)
}
