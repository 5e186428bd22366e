// Package registry implements the PendingClaimRegistry of spec.md §4.4: the
// single process-wide, volatile map from an opaque transaction key to the
// PreparedClaim it was minted from, with TTL eviction.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/authz"
)

var log = build.NewSubLogger("REGY", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// DefaultTTL is the preparedTTL default of spec.md §6.
const DefaultTTL = 5 * time.Minute

// TransactionKey is the opaque handle returned to the client by Prepare and
// presented back at Confirm: <token> || <prepared-at ms> || <8 random
// bytes>, per spec.md §3. It is a plain string for use as a map key and for
// JSON transport (hex-encoded).
type TransactionKey string

// NewTransactionKey builds a fresh key for token, prepared at preparedAt.
// Collisions are computationally infeasible: 8 random bytes on top of the
// token and millisecond timestamp.
func NewTransactionKey(token solana.PublicKey, preparedAt time.Time) (TransactionKey, error) {
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating transaction key nonce: %w", err)
	}

	buf := make([]byte, 0, 32+8+8)
	buf = append(buf, token[:]...)
	ms := preparedAt.UnixMilli()
	buf = append(buf,
		byte(ms>>56), byte(ms>>48), byte(ms>>40), byte(ms>>32),
		byte(ms>>24), byte(ms>>16), byte(ms>>8), byte(ms),
	)
	buf = append(buf, nonce[:]...)

	return TransactionKey(hex.EncodeToString(buf)), nil
}

// PreparedClaim is the registry value of spec.md §3, owned exclusively by
// the registry and destroyed on confirmation, TTL expiry, or confirmation
// failure cleanup.
type PreparedClaim struct {
	Token               solana.PublicKey
	UserWallet          solana.PublicKey
	RequestedAmount     *big.Int
	Decimals            uint8
	PreparedAt          time.Time
	UnsignedFingerprint [32]byte

	// AuthorizedWallet and Mode capture the Authorizer's decision at
	// Prepare time, so Confirm's re-authorization check (spec.md §4.6,
	// check 5) has something to compare its fresh decision against.
	AuthorizedWallet solana.PublicKey
	Mode             authz.Mode
}

// Registry is the process-local PendingClaimRegistry.
type Registry struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[TransactionKey]entry
}

type entry struct {
	claim     PreparedClaim
	expiresAt time.Time
}

// New creates an empty registry with the given TTL.
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl: ttl,
		m:   make(map[TransactionKey]entry),
	}
}

// Sweep removes every entry older than the registry's TTL as of now. Per
// spec.md §4.4 it MUST be called before Insert on every Prepare, which
// Insert enforces by calling it itself while still holding the lock.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(now)
}

func (r *Registry) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range r.m {
		if now.After(e.expiresAt) {
			delete(r.m, k)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("swept %d expired pending claims", removed)
	}
	return removed
}

// Insert sweeps expired entries, then stores claim under key. Key
// uniqueness is a construction invariant of NewTransactionKey; Insert does
// not check for collisions.
func (r *Registry) Insert(now time.Time, key TransactionKey, claim PreparedClaim) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(now)

	r.m[key] = entry{
		claim:     claim,
		expiresAt: now.Add(r.ttl),
	}
}

// Take atomically gets and deletes the entry for key. It returns ok=false
// if the key is absent or has expired (spec.md's "Unknown transaction key"
// case), even if the map still physically contains a stale entry that
// hasn't been swept yet.
func (r *Registry) Take(now time.Time, key TransactionKey) (PreparedClaim, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.m[key]
	if !ok {
		return PreparedClaim{}, false
	}
	delete(r.m, key)

	if now.After(e.expiresAt) {
		return PreparedClaim{}, false
	}
	return e.claim, true
}

// Exists reports whether key currently names a live, unexpired entry,
// without consuming it. Used by the streaming endpoint to refuse a
// subscription for a transaction key the registry never issued or has
// already dropped.
func (r *Registry) Exists(now time.Time, key TransactionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.m[key]
	if !ok {
		return false
	}
	return !now.After(e.expiresAt)
}

// Len reports the number of entries currently held, for metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}
