package streamhub

import (
	"testing"

	"github.com/solmint/claimengine/internal/submitter"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishDeliversToSubscriber(t *testing.T) {
	h := New()
	ch := h.Subscribe("key1")

	h.Publish("key1", submitter.Update{TransactionKey: "key1", Attempt: 1})

	select {
	case u := <-ch:
		require.Equal(t, 1, u.Attempt)
	default:
		t.Fatal("expected an update to be delivered")
	}
}

// A terminal update closes and drops every subscriber for that key, since a
// transaction key has exactly one terminal outcome.
func TestHub_TerminalUpdateClosesSubscribers(t *testing.T) {
	h := New()
	ch := h.Subscribe("key1")

	h.Publish("key1", submitter.Update{TransactionKey: "key1", Done: true})

	u, ok := <-ch
	require.True(t, ok)
	require.True(t, u.Done)

	_, ok = <-ch
	require.False(t, ok, "channel must be closed after the terminal update")
}

func TestHub_UnsubscribeRemovesListener(t *testing.T) {
	h := New()
	ch := h.Subscribe("key1")
	h.Unsubscribe("key1", ch)

	h.Publish("key1", submitter.Update{TransactionKey: "key1", Attempt: 1})

	select {
	case u := <-ch:
		t.Fatalf("unsubscribed channel must not receive further updates, got %+v", u)
	default:
	}
}

func TestHub_PublishWithNoSubscribersIsANoop(t *testing.T) {
	h := New()
	require.NotPanics(t, func() {
		h.Publish("nobody-listening", submitter.Update{Done: true})
	})
}
