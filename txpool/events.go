package txpool

import "github.com/ethereum/go-ethereum/event"

// UnsealedSizeEvent carries a refreshed unsealed-transaction count,
// broadcast every time it changes.
type UnsealedSizeEvent struct {
	Size int
}

// TxFinishedEvent carries the terminal outcome of a transaction that
// has left the pool, whether committed or evicted.
type TxFinishedEvent struct {
	Hash   Hash
	Status Status
}

// Feeds groups the broadcast streams external subscribers (an RPC or
// P2P layer, out of this package's scope) can hook into without the
// pool holding a reference back to them, mirroring how go-ethereum
// exposes feeds for subsystems that don't own their own consumers.
type Feeds struct {
	UnsealedSize event.FeedOf[UnsealedSizeEvent]
	TxFinished   event.FeedOf[TxFinishedEvent]
}

// SubscribeUnsealedSize delivers every unsealed-size change to ch.
func (p *Pool) SubscribeUnsealedSize(ch chan<- UnsealedSizeEvent) event.Subscription {
	return p.feeds.UnsealedSize.Subscribe(ch)
}

// SubscribeTxFinished delivers every transaction's terminal outcome to ch.
func (p *Pool) SubscribeTxFinished(ch chan<- TxFinishedEvent) event.Subscription {
	return p.feeds.TxFinished.Subscribe(ch)
}
