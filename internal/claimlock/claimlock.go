// Package claimlock implements the ClaimLock of spec.md §4.5: a per-token
// asynchronous mutex with FIFO waiters, lazily created and never destroyed
// for the lifetime of the process.
//
// The contract mirrors the keyed-mutex shape documented by
// prysmaticlabs-prysm's async package (only its test file was retrieved
// into the example pack, async/multilock_test.go, but it fixes the
// expected external behavior: Lock(key)/Unlock(key) pairs, FIFO order per
// key, independence across keys); this implementation is original, built
// to that contract using channel-based tickets, the idiom degeri-dcrlnd
// itself uses for its per-channel barriers.
package claimlock

import (
	"context"
	"sync"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
)

var log = build.NewSubLogger("LOCK", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Manager owns one FIFO mutex per token, created lazily on first Acquire.
type Manager struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*tokenLock
}

type tokenLock struct {
	ch chan struct{} // 1-buffered; a token in the channel means "free"
}

func newTokenLock() *tokenLock {
	l := &tokenLock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

// NewManager returns an empty lock manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[solana.PublicKey]*tokenLock)}
}

// Release hands the lock for a token back to the next FIFO waiter, or
// leaves it free if none is waiting. Release is idempotent: calls after the
// first for the same Acquire do nothing. Confirm releases it via a single
// defer.
type Release func()

// Acquire blocks until the per-token lock for token is available, enqueuing
// the caller in FIFO order behind any current holder, then returns a
// release handle. If ctx is canceled while waiting, Acquire returns the
// context error and the caller never holds the lock.
func (m *Manager) Acquire(ctx context.Context, token solana.PublicKey) (Release, error) {
	lock := m.lockFor(token)

	select {
	case <-lock.ch:
		log.Debugf("acquired claim lock for token %s", token)
		var once sync.Once
		return func() {
			once.Do(func() {
				log.Debugf("released claim lock for token %s", token)
				lock.ch <- struct{}{}
			})
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) lockFor(token solana.PublicKey) *tokenLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[token]
	if !ok {
		l = newTokenLock()
		m.locks[token] = l
	}
	return l
}
