package dmc

import "errors"

// ErrorCode is the closed set of executor-reported failure reasons.
type ErrorCode int

const (
	ErrorCodeNone ErrorCode = iota
	// ErrorCodeTermIDMismatch signals a consensus view change: the
	// caller must invoke the dispatcher's switch-trigger and abandon
	// the enclosing block.
	ErrorCodeTermIDMismatch
	ErrorCodeOther
)

// ExecError carries an ErrorCode alongside the usual error message so
// dispatch logic can branch on term-id mismatches without string
// matching.
type ExecError struct {
	Code ErrorCode
	Err  error
}

func (e *ExecError) Error() string {
	if e.Err == nil {
		return "dmc: executor error"
	}
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// IsTermIDMismatch reports whether err is an ExecError carrying the
// term-id-mismatch sentinel code.
func IsTermIDMismatch(err error) bool {
	var execErr *ExecError
	return errors.As(err, &execErr) && execErr.Code == ErrorCodeTermIDMismatch
}

// BlockHeader is the opaque block context handed to preExecute. It is
// not interpreted by this package beyond being threaded through to the
// executor.
type BlockHeader struct {
	Number    int64
	Timestamp int64
}

// Executor is the async remote execution backend. Every method is
// callback-driven: dispatchers never block a goroutine waiting on the
// executor.
type Executor interface {
	// PreExecuteTransactions asks the executor to warm its state for a
	// prospective batch without committing to it.
	PreExecuteTransactions(termID int64, header BlockHeader, shard Address, msgs []*ExecutionMessage, cb func(error))
	// ExecuteTransactions runs a batch to completion (or pause),
	// returning one output per input message that terminated or
	// requires further dispatch.
	ExecuteTransactions(shard Address, msgs []*ExecutionMessage, cb func(error, []*ExecutionMessage))
	// Call executes a single static call, bypassing the batch path.
	Call(msg *ExecutionMessage, cb func(error, *ExecutionMessage))
}
