package txpool

import (
	"github.com/ethereum/go-ethereum/log"
)

// maxRetryNotifyTime bounds retries of the unsealed-size notifier,
// matching the original MAX_RETRY_NOTIFY_TIME constant.
const maxRetryNotifyTime = 3

// notifyUnsealedSize invokes the configured UnsealedSizeNotifier with
// the pool's current unsealed size, retrying on failure up to
// maxRetryNotifyTime.
//
// The original captures a weak reference to the pool for the retry
// closure so a destroyed pool doesn't get resurrected by a pending
// retry (spec.md Design Notes: "Cyclic concurrency via self-reference
// for retry"). Go has no shared_ptr-style destruction to race against:
// a Pool with no other referents outlives only as long as its own
// retry closures keep it reachable, which is already the desired
// behavior, so the closure simply captures p directly.
func (p *Pool) notifyUnsealedSize(retry int) {
	size := p.UnsealedTxsSize()
	if retry == 0 {
		p.feeds.UnsealedSize.Send(UnsealedSizeEvent{Size: size})
	}
	if p.notifier == nil {
		return
	}
	p.notifier(size, func(err error) {
		if err == nil {
			return
		}
		log.Warn("notifyUnsealedTxsSize failed", "err", err, "retry", retry)
		if retry >= maxRetryNotifyTime {
			return
		}
		p.notifyUnsealedSize(retry + 1)
	})
}
