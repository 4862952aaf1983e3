package txpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeTxFinishedFiresOnCommit(t *testing.T) {
	p := newTestPool()
	ch := make(chan TxFinishedEvent, 4)
	sub := p.SubscribeTxFinished(ch)
	defer sub.Unsubscribe()

	tx := NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"})
	_, err := submitPending(p, tx)
	require.NoError(t, err)

	p.BatchRemove(BatchID(1), []CommitResult{{Hash: Hash{1}, Status: StatusNone, Nonce: "a"}})

	select {
	case ev := <-ch:
		assert.Equal(t, Hash{1}, ev.Hash)
		assert.Equal(t, StatusNone, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("expected a TxFinishedEvent")
	}
}

func TestSubscribeUnsealedSizeFiresOnSubmit(t *testing.T) {
	p := newTestPool()
	ch := make(chan UnsealedSizeEvent, 4)
	sub := p.SubscribeUnsealedSize(ch)
	defer sub.Unsubscribe()

	_, err := submitPending(p, NewTransaction(Payload{Hash: Hash{1}, Nonce: "a"}))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, 1, ev.Size)
	case <-time.After(time.Second):
		t.Fatal("expected an UnsealedSizeEvent")
	}
}
