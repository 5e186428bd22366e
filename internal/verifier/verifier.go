// Package verifier implements the Verifier of spec.md §4.6: the six ordered
// checks a signed claim transaction must pass at Confirm time before the
// Submitter is allowed to touch it.
package verifier

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/authz"
	"github.com/solmint/claimengine/internal/eligibility"
	"github.com/solmint/claimengine/internal/gateway"
)

var log = build.NewSubLogger("VRFY", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Kind enumerates the Verifier failure kinds of spec.md §4.6, in check
// order.
type Kind int

const (
	KindNone Kind = iota
	KindBlockhashExpired
	KindSignerAbsent
	KindSignatureInvalid
	KindTransactionModified
	KindAuthorizationFailed
	KindEligibilityChanged
)

// Error wraps a verification failure with its Kind. AuthzKind is populated
// only when Kind == KindAuthorizationFailed, carrying the underlying
// authz.Kind for the caller to report precisely.
type Error struct {
	Kind      Kind
	Msg       string
	Err       error
	AuthzKind authz.Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Claim is the subset of a registry.PreparedClaim the verifier needs,
// passed in rather than importing internal/registry, to keep this
// package's dependency graph pointing only at its collaborators.
type Claim struct {
	Token            solana.PublicKey
	UserWallet       solana.PublicKey
	Amount           *big.Int
	Fingerprint      [32]byte
	AuthorizedWallet solana.PublicKey
	Mode             authz.Mode
}

// EligibilityStore supplies the inputs eligibility.Compute needs for the
// re-eligibility check: the token's launch instant, the protocol's emission
// constants, and the amount minted so far.
type EligibilityStore interface {
	TokenLaunch(ctx context.Context, token solana.PublicKey) (time.Time, eligibility.Params, error)
	TotalMinted(ctx context.Context, token solana.PublicKey) (*big.Int, error)
}

// Params bundles the collaborators the six checks consult.
type Params struct {
	Gateway          gateway.Gateway
	Registry         authz.Registry
	EligibilityStore EligibilityStore
}

// Verify runs the six ordered checks of spec.md §4.6 against a signed
// transaction tx for claim. On success it returns nil; the caller may then
// hand tx to the Submitter.
func Verify(ctx context.Context, params Params, tx *solana.Transaction, claim Claim) error {
	if err := checkBlockhashLiveness(ctx, params.Gateway, tx); err != nil {
		return err
	}

	signerIdx, err := checkSignerPresent(tx, claim.AuthorizedWallet)
	if err != nil {
		return err
	}

	if err := checkSignatureValid(tx, signerIdx, claim.AuthorizedWallet); err != nil {
		return err
	}

	if err := checkNotTampered(tx, claim.Fingerprint); err != nil {
		return err
	}

	if err := checkReauthorized(ctx, params.Registry, claim); err != nil {
		return err
	}

	if err := checkReeligible(ctx, params.EligibilityStore, claim); err != nil {
		return err
	}

	log.Infof("verified claim for token %s user %s: all six checks passed", claim.Token, claim.UserWallet)
	return nil
}

func checkBlockhashLiveness(ctx context.Context, gw gateway.Gateway, tx *solana.Transaction) error {
	valid, err := gw.IsBlockhashValid(ctx, tx.Message.RecentBlockhash)
	if err != nil {
		return fail(KindBlockhashExpired, "checking blockhash liveness", err)
	}
	if !valid {
		return fail(KindBlockhashExpired, "transaction's recent blockhash is no longer valid", nil)
	}
	return nil
}

func checkSignerPresent(tx *solana.Transaction, authorizedWallet solana.PublicKey) (int, error) {
	for i, key := range tx.Message.AccountKeys {
		if key.Equals(authorizedWallet) {
			return i, nil
		}
	}
	return -1, fail(KindSignerAbsent, "authorized wallet not present in transaction account keys", nil)
}

func checkSignatureValid(tx *solana.Transaction, signerIdx int, authorizedWallet solana.PublicKey) error {
	if signerIdx >= len(tx.Signatures) {
		return fail(KindSignatureInvalid, "no signature present at the authorized wallet's index", nil)
	}

	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fail(KindSignatureInvalid, "marshaling transaction message", err)
	}

	sig := tx.Signatures[signerIdx]
	if !ed25519.Verify(ed25519.PublicKey(authorizedWallet[:]), msgBytes, sig[:]) {
		return fail(KindSignatureInvalid, "ed25519 signature verification failed", nil)
	}
	return nil
}

func checkNotTampered(tx *solana.Transaction, preparedFingerprint [32]byte) error {
	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fail(KindTransactionModified, "marshaling transaction message", err)
	}
	actual := sha256.Sum256(msgBytes)
	if !bytes.Equal(actual[:], preparedFingerprint[:]) {
		log.Debugf("fingerprint mismatch, rejecting message: %v", spew.Sdump(tx.Message))
		return fail(KindTransactionModified, "signed transaction's fingerprint does not match the prepared one", nil)
	}
	return nil
}

func checkReauthorized(ctx context.Context, reg authz.Registry, claim Claim) error {
	decision, err := authz.Authorize(ctx, reg, claim.Token, claim.UserWallet)
	if err != nil {
		if authzErr, ok := err.(*authz.Error); ok {
			return &Error{
				Kind:      KindAuthorizationFailed,
				Msg:       "re-authorization failed: " + authzErr.Msg,
				AuthzKind: authzErr.Kind,
			}
		}
		return fail(KindAuthorizationFailed, "re-authorization", err)
	}

	if !decision.AuthorizedWallet.Equals(claim.AuthorizedWallet) || decision.Mode != claim.Mode {
		return &Error{
			Kind: KindAuthorizationFailed,
			Msg:  "re-authorization outcome no longer matches the prepared claim",
		}
	}
	return nil
}

func checkReeligible(ctx context.Context, store EligibilityStore, claim Claim) error {
	launch, params, err := store.TokenLaunch(ctx, claim.Token)
	if err != nil {
		return fail(KindEligibilityChanged, "fetching token launch time", err)
	}
	totalMinted, err := store.TotalMinted(ctx, claim.Token)
	if err != nil {
		return fail(KindEligibilityChanged, "fetching total minted", err)
	}

	elig := eligibility.Compute(params, launch, time.Now(), totalMinted)
	if !elig.CanClaimNow || claim.Amount.Cmp(elig.AvailableToClaim) > 0 {
		return fail(KindEligibilityChanged, "amount no longer within availableToClaim", nil)
	}
	return nil
}
