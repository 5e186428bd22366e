// Package authz implements the Authorizer of spec.md §4.2: given a token and
// a candidate wallet, it decides whether that wallet may claim right now,
// and under which identity model (creator vs. designated).
package authz

import (
	"context"
	"fmt"
	"strings"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
)

var log = build.NewSubLogger("AUTH", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Mode identifies which identity model authorized the claim.
type Mode int

const (
	// ModeCreator means the original launcher wallet is claiming.
	ModeCreator Mode = iota
	// ModeDesignated means a socially-verified wallet is claiming on
	// behalf of a token whose claim rights were reassigned.
	ModeDesignated
)

func (m Mode) String() string {
	switch m {
	case ModeCreator:
		return "creator"
	case ModeDesignated:
		return "designated"
	default:
		return "unknown"
	}
}

// Kind enumerates the authorization outcomes of spec.md §4.2's decision
// table. Kind zero (KindNone) is never returned on success.
type Kind int

const (
	KindNone Kind = iota
	KindDesignatedDeniedToLauncher
	KindDesignatedUnverified
	KindDesignatedForbidden
	KindCreatorUnknown
	KindCreatorForbidden
	KindCreatorWalletInvalid
)

// Error wraps a denied-authorization outcome with its Kind.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func denied(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// DesignatedRecord is the identity registry's view of a designated-claim
// token (spec.md §3, §4.2).
type DesignatedRecord struct {
	OriginalLauncher solana.PublicKey
	VerifiedExternal *solana.PublicKey // nil if unset
	VerifiedEmbedded *solana.PublicKey // nil if unset
}

// Registry is the subset of the identity registry collaborator the
// Authorizer needs.
type Registry interface {
	GetTokenCreatorWallet(ctx context.Context, token solana.PublicKey) (*solana.PublicKey, error)
	GetDesignatedClaimByToken(ctx context.Context, token solana.PublicKey) (*DesignatedRecord, error)
}

// Decision is the Authorizer's output on success.
type Decision struct {
	AuthorizedWallet solana.PublicKey
	Mode             Mode
}

// Authorize implements the decision table of spec.md §4.2, in the stated
// order. Comparisons are exact byte equality of the canonical public key
// after trimming whitespace from any string form read from the registry.
func Authorize(ctx context.Context, reg Registry, token, user solana.PublicKey) (Decision, error) {
	designated, err := reg.GetDesignatedClaimByToken(ctx, token)
	if err != nil {
		return Decision{}, fmt.Errorf("identity registry: designated claim lookup: %w", err)
	}

	if designated != nil {
		return authorizeDesignated(*designated, user)
	}

	creator, err := reg.GetTokenCreatorWallet(ctx, token)
	if err != nil {
		return Decision{}, fmt.Errorf("identity registry: creator wallet lookup: %w", err)
	}
	if creator == nil {
		return Decision{}, denied(KindCreatorUnknown, "token has no known creator wallet")
	}
	if !creator.IsOnCurve() {
		return Decision{}, denied(KindCreatorWalletInvalid, "creator wallet is not a valid on-curve address")
	}

	if !user.Equals(*creator) {
		log.Debugf("creator-mode denial: user %s != creator %s", user, creator)
		return Decision{}, denied(KindCreatorForbidden, "caller is not the token creator")
	}

	return Decision{AuthorizedWallet: *creator, Mode: ModeCreator}, nil
}

func authorizeDesignated(rec DesignatedRecord, user solana.PublicKey) (Decision, error) {
	if user.Equals(rec.OriginalLauncher) {
		return Decision{}, denied(KindDesignatedDeniedToLauncher,
			"original launcher may not claim a designated token")
	}

	if rec.VerifiedExternal == nil && rec.VerifiedEmbedded == nil {
		return Decision{}, denied(KindDesignatedUnverified,
			"designated identity has no verified wallet on file")
	}

	switch {
	case rec.VerifiedExternal != nil && user.Equals(*rec.VerifiedExternal):
		return Decision{AuthorizedWallet: *rec.VerifiedExternal, Mode: ModeDesignated}, nil
	case rec.VerifiedEmbedded != nil && user.Equals(*rec.VerifiedEmbedded):
		return Decision{AuthorizedWallet: *rec.VerifiedEmbedded, Mode: ModeDesignated}, nil
	default:
		return Decision{}, denied(KindDesignatedForbidden,
			"caller is neither the verified external nor embedded wallet")
	}
}

// TrimmedPublicKey parses a registry-sourced string into a public key after
// trimming surrounding whitespace, per spec.md §4.2's comparison rule.
func TrimmedPublicKey(s string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(strings.TrimSpace(s))
}
