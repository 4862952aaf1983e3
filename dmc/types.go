// Package dmc implements the sharded Dispatch-Message-Call executor
// dispatcher: one state machine per contract shard that batches
// execution messages to an executor backend, pre-executes
// speculatively, and drives the message call-graph until every
// transaction in a block completes.
package dmc

import "github.com/ethereum/go-ethereum/common"

// ContextID groups every message belonging to one originating
// transaction's call tree across shards.
type ContextID uint64

// Seq is the sequence number of a call within a context, incremented
// on each nested call.
type Seq uint32

// Address identifies a contract shard.
type Address = common.Address

// MessageType classifies an ExecutionMessage for dispatch routing.
type MessageType int

const (
	MessageTypeMessage MessageType = iota
	MessageTypeFinished
	MessageTypeRevert
	MessageTypeKeyLock
	MessageTypeSendBack
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeMessage:
		return "MESSAGE"
	case MessageTypeFinished:
		return "FINISHED"
	case MessageTypeRevert:
		return "REVERT"
	case MessageTypeKeyLock:
		return "KEY_LOCK"
	case MessageTypeSendBack:
		return "SEND_BACK"
	default:
		return "UNKNOWN"
	}
}

// ExecutionMessage is the unit routed between shard dispatchers and
// the executor backend. The fields below are the ones this package
// inspects; executors may carry additional opaque payload alongside
// these via the Data field.
type ExecutionMessage struct {
	ContextID    ContextID
	Seq          Seq
	To           Address
	Type         MessageType
	StaticCall   bool
	InternalCall bool
	KeyLockKey   string // only meaningful when Type == MessageTypeKeyLock
	Data         []byte
}

// Status is the per-shard, per-block dispatch state.
type Status int

const (
	StatusIdle Status = iota
	StatusStaging
	StatusPreExecuting
	StatusDispatching
	StatusFinished
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusStaging:
		return "STAGING"
	case StatusPreExecuting:
		return "PRE_EXECUTING"
	case StatusDispatching:
		return "DISPATCHING"
	case StatusFinished:
		return "FINISHED"
	case StatusPaused:
		return "PAUSED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
