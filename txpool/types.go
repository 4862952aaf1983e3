// Package txpool implements the in-memory pool of pending signed
// transactions described by the sharded dispatch core: ingestion,
// validation, sealing into proposals, commit-time removal, expiry and
// unsealed-size notification.
package txpool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Hash identifies a transaction. It is a fixed-width digest; the zero
// value is never a valid transaction hash and is used as the sentinel
// "no batch hash" value on unsealed transactions.
type Hash = common.Hash

// Address identifies a sender or callee account.
type Address = common.Address

// Nonce is an opaque, validator-defined byte string. The pool never
// interprets its contents beyond equality and set membership.
type Nonce string

// PeerID identifies a gossip peer that announced or requested a
// transaction.
type PeerID string

// BatchID identifies the proposal a transaction has been sealed into.
// -1 means "unsealed".
type BatchID int64

// UnsealedBatchID is the sentinel BatchID carried by an unsealed
// transaction, and by one that has been sealed by batchFetchTxs but not
// yet assigned to a concrete
// proposal (see spec: "seal it (sealed=true, batch_id=-1, batch_hash=zero)").
const UnsealedBatchID BatchID = -1

// String renders a Nonce for logging without assuming an encoding.
func (n Nonce) String() string {
	return fmt.Sprintf("%x", []byte(n))
}
