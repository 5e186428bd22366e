// Package streamhub relays submitter.Update ticks from a running Confirm
// call to any websocket client watching the same transaction key, the
// pub/sub backing SPEC_FULL.md §6's additive streaming endpoint. It sits
// between internal/engine (the publisher) and internal/api (the
// subscriber) so neither package needs to import the other's HTTP or
// orchestration concerns to share this one channel of updates.
package streamhub

import (
	"sync"

	"github.com/solmint/claimengine/internal/submitter"
)

// Hub is a process-local pub/sub keyed by transaction key. The zero value
// is not usable; construct with New.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan submitter.Update
}

// New builds an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string][]chan submitter.Update)}
}

// Subscribe registers a new listener for key. The caller must Unsubscribe
// when done, even if the channel was already closed by a terminal Publish.
func (h *Hub) Subscribe(key string) chan submitter.Update {
	ch := make(chan submitter.Update, 8)

	h.mu.Lock()
	h.subs[key] = append(h.subs[key], ch)
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes ch from key's listener list. Safe to call after the
// channel has already been closed by a terminal Publish.
func (h *Hub) Unsubscribe(key string, ch chan submitter.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[key]
	for i, c := range subs {
		if c == ch {
			h.subs[key] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers u to every current listener of key, non-blocking. A
// transaction key has exactly one terminal outcome (spec.md's "the key is
// never reused"), so a Done update is delivered (best-effort) and then every
// listener is closed and the key's subscriber list dropped.
func (h *Hub) Publish(key string, u submitter.Update) {
	h.mu.Lock()
	subs := append([]chan submitter.Update(nil), h.subs[key]...)
	if u.Done {
		delete(h.subs, key)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		default:
		}
		if u.Done {
			close(ch)
		}
	}
}
