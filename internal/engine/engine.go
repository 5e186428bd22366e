// Package engine implements the Emission Claim Engine's Prepare/Confirm
// orchestration (spec.md §2's control flow), wiring together the
// EligibilityCalculator, Authorizer, TransactionBuilder, PendingClaimRegistry,
// ClaimLock, Verifier, and Submitter.
package engine

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/authz"
	"github.com/solmint/claimengine/internal/bigutil"
	"github.com/solmint/claimengine/internal/claimlock"
	"github.com/solmint/claimengine/internal/eligibility"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/solmint/claimengine/internal/identity"
	"github.com/solmint/claimengine/internal/registry"
	"github.com/solmint/claimengine/internal/streamhub"
	"github.com/solmint/claimengine/internal/submitter"
	"github.com/solmint/claimengine/internal/txbuilder"
	"github.com/solmint/claimengine/internal/verifier"
)

var log = build.NewSubLogger("ENGN", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// IdentityRegistry is the subset of the identity registry collaborator the
// engine needs beyond authz.Registry: launch-time lookup for
// EligibilityCalculator.
type IdentityRegistry interface {
	authz.Registry
	GetTokenLaunchTime(ctx context.Context, token solana.PublicKey) (time.Time, error)
}

// AuditStore is the audit store collaborator contract of spec.md §1/§6.
type AuditStore interface {
	HasRecentClaim(ctx context.Context, token solana.PublicKey, window time.Duration) (bool, error)
	PreRecordClaim(ctx context.Context, user, token solana.PublicKey, amount *big.Int) error
}

// Tunables are the hot-reloadable knobs of SPEC_FULL.md §9: safe to change
// without a restart because they gate timing, not correctness-critical
// amounts.
type Tunables struct {
	RecencyWindow   time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

// Config bundles the engine's collaborators and protocol constants.
type Config struct {
	Gateway           gateway.Gateway
	Identity          IdentityRegistry
	Audit             AuditStore
	EligibilityParams eligibility.Params
	TxConfig          txbuilder.Config
	MintAuthority     solana.PrivateKey
	PreparedTTL       time.Duration

	// Updates, if non-nil, receives every submitter.Update tick Confirm's
	// poll loop produces, keyed by transaction key, so internal/api's
	// websocket handler can relay them to a subscribed client
	// (SPEC_FULL.md §6). A nil Updates disables streaming entirely.
	Updates *streamhub.Hub
}

// Engine is the assembled Emission Claim Engine: one instance per process,
// sharing no in-memory state with other replicas (spec.md §5).
type Engine struct {
	cfg      Config
	registry *registry.Registry
	locks    *claimlock.Manager
	tunables func() Tunables
}

// New assembles an Engine. tunables is called fresh on every Confirm so
// config hot-reload (SPEC_FULL.md §9) is observed without a restart.
func New(cfg Config, tunables func() Tunables) *Engine {
	return &Engine{
		cfg:      cfg,
		registry: registry.New(cfg.PreparedTTL),
		locks:    claimlock.NewManager(),
		tunables: tunables,
	}
}

// PrepareResult is the success shape of spec.md §6's `POST claims/mint`.
type PrepareResult struct {
	Transaction    *solana.Transaction
	TransactionKey registry.TransactionKey
	ClaimAmount    string
}

// Prepare implements the first half of the two-phase claim flow: authorize,
// build, register, return. It takes no lock (spec.md §5: "Prepare has no
// lock").
func (e *Engine) Prepare(ctx context.Context, token, user solana.PublicKey, amountStr string) (PrepareResult, error) {
	amount, err := bigutil.ParseAmount(amountStr)
	if err != nil {
		kind := ErrInvalidAmountFormat
		if err == bigutil.ErrNegative {
			kind = ErrInvalidAmountValue
		}
		preparesTotal.WithLabelValues("bad_amount").Inc()
		return PrepareResult{}, fail(kind, "parsing claim amount", err)
	}
	if amount.Sign() == 0 {
		preparesTotal.WithLabelValues("bad_amount").Inc()
		return PrepareResult{}, fail(ErrInvalidAmountValue, "amount must be positive", nil)
	}
	if amount.Cmp(txbuilder.SafeMaxAmount) > 0 {
		preparesTotal.WithLabelValues("bad_amount").Inc()
		return PrepareResult{}, fail(ErrAmountTooLarge, "amount exceeds the safe maximum", nil)
	}

	decision, err := e.authorize(ctx, token, user)
	if err != nil {
		preparesTotal.WithLabelValues("unauthorized").Inc()
		return PrepareResult{}, err
	}

	elig, err := e.computeEligibility(ctx, token)
	if err != nil {
		preparesTotal.WithLabelValues("eligibility_error").Inc()
		return PrepareResult{}, err
	}
	if !elig.CanClaimNow {
		preparesTotal.WithLabelValues("no_tokens_available").Inc()
		return PrepareResult{}, &Error{
			Kind:              ErrNoTokensAvailable,
			Msg:               "no tokens currently available to claim",
			NextInflationTime: elig.NextInflationTime.UnixMilli(),
		}
	}
	if amount.Cmp(elig.AvailableToClaim) > 0 {
		preparesTotal.WithLabelValues("amount_exceeds_available").Inc()
		return PrepareResult{}, fail(ErrAmountExceedsAvailable, "amount exceeds availableToClaim", nil)
	}

	built, err := txbuilder.Build(ctx, e.cfg.Gateway, e.cfg.TxConfig, token, decision.AuthorizedWallet, decision.AuthorizedWallet, amount, elig.AvailableToClaim)
	if err != nil {
		preparesTotal.WithLabelValues("build_failed").Inc()
		return PrepareResult{}, mapBuilderErr(err)
	}

	now := time.Now()
	key, err := registry.NewTransactionKey(token, now)
	if err != nil {
		preparesTotal.WithLabelValues("misconfiguration").Inc()
		return PrepareResult{}, fail(ErrMisconfiguration, "generating transaction key", err)
	}

	e.registry.Insert(now, key, registry.PreparedClaim{
		Token:               token,
		UserWallet:          decision.AuthorizedWallet,
		RequestedAmount:     amount,
		Decimals:            built.Decimals,
		PreparedAt:          now,
		UnsignedFingerprint: built.Fingerprint,
		AuthorizedWallet:    decision.AuthorizedWallet,
		Mode:                decision.Mode,
	})
	pendingClaims.Set(float64(e.registry.Len()))

	preparesTotal.WithLabelValues("success").Inc()
	log.Infof("prepared claim: token=%s user=%s amount=%s key=%s", token, decision.AuthorizedWallet, amount, key)

	return PrepareResult{
		Transaction:    built.Transaction,
		TransactionKey: key,
		ClaimAmount:    amount.String(),
	}, nil
}

// ConfirmResult is the success shape of spec.md §6's `POST claims/confirm`.
type ConfirmResult struct {
	Signature   solana.Signature
	Token       solana.PublicKey
	ClaimAmount string
	Status      gateway.SignatureStatus
}

// Confirm implements the second half of the two-phase claim flow, following
// the state machine of spec.md §4.7 exactly: lookup (which also removes the
// registry entry), lock, recency, pre-record, verify, sign+submit, poll,
// release.
func (e *Engine) Confirm(ctx context.Context, signedTx *solana.Transaction, key registry.TransactionKey) (ConfirmResult, error) {
	start := time.Now()

	claim, ok := e.registry.Take(start, key)
	if !ok {
		confirmsTotal.WithLabelValues("unknown_key").Inc()
		return ConfirmResult{}, fail(ErrUnknownTransactionKey, "transaction key is unknown or expired", nil)
	}
	pendingClaims.Set(float64(e.registry.Len()))

	release, err := e.locks.Acquire(ctx, claim.Token)
	if err != nil {
		confirmsTotal.WithLabelValues("lock_error").Inc()
		return ConfirmResult{}, fail(ErrMisconfiguration, "acquiring claim lock", err)
	}
	defer release()
	defer func() { confirmDuration.Observe(time.Since(start).Seconds()) }()

	tunables := e.tunables()

	recent, err := e.cfg.Audit.HasRecentClaim(ctx, claim.Token, tunables.RecencyWindow)
	if err != nil {
		confirmsTotal.WithLabelValues("audit_error").Inc()
		return ConfirmResult{}, fail(ErrMisconfiguration, "querying recency predicate", err)
	}
	if recent {
		confirmsTotal.WithLabelValues("recent_claim_blocked").Inc()
		return ConfirmResult{}, fail(ErrRecentClaimBlocked, "a recent claim already exists for this token", nil)
	}

	if err := e.cfg.Audit.PreRecordClaim(ctx, claim.UserWallet, claim.Token, claim.RequestedAmount); err != nil {
		confirmsTotal.WithLabelValues("audit_error").Inc()
		return ConfirmResult{}, fail(ErrMisconfiguration, "pre-recording claim", err)
	}

	vErr := verifier.Verify(ctx, verifier.Params{
		Gateway:          e.cfg.Gateway,
		Registry:         e.cfg.Identity,
		EligibilityStore: e,
	}, signedTx, verifier.Claim{
		Token:            claim.Token,
		UserWallet:       claim.UserWallet,
		Amount:           claim.RequestedAmount,
		Fingerprint:      claim.UnsignedFingerprint,
		AuthorizedWallet: claim.AuthorizedWallet,
		Mode:             claim.Mode,
	})
	if vErr != nil {
		confirmsTotal.WithLabelValues("verify_failed").Inc()
		return ConfirmResult{}, mapVerifierErr(vErr)
	}

	var updatesCh chan submitter.Update
	if e.cfg.Updates != nil {
		updatesCh = make(chan submitter.Update, 8)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for u := range updatesCh {
				e.cfg.Updates.Publish(u.TransactionKey, u)
			}
		}()
		defer func() { close(updatesCh); <-done }()
	}

	result, err := submitter.Submit(ctx, e.cfg.Gateway, e.cfg.MintAuthority, signedTx, gateway.PollConfig{
		Interval:    tunables.PollInterval,
		MaxAttempts: tunables.PollMaxAttempts,
	}, string(key), updatesCh)
	if err != nil {
		confirmsTotal.WithLabelValues("submit_failed").Inc()
		return ConfirmResult{}, mapSubmitterErr(err)
	}

	confirmsTotal.WithLabelValues("success").Inc()
	log.Infof("confirmed claim: token=%s user=%s amount=%s sig=%s", claim.Token, claim.UserWallet, claim.RequestedAmount, result.Signature)

	return ConfirmResult{
		Signature:   result.Signature,
		Token:       claim.Token,
		ClaimAmount: claim.RequestedAmount.String(),
		Status:      result.Status,
	}, nil
}

// HasPendingClaim reports whether key currently names a live prepared
// claim, letting the streaming endpoint refuse a subscription for a
// transaction key it never issued or has already resolved.
func (e *Engine) HasPendingClaim(key registry.TransactionKey) bool {
	return e.registry.Exists(time.Now(), key)
}

// EligibilitySnapshot implements spec.md §6's `GET claims/{token}`.
func (e *Engine) EligibilitySnapshot(ctx context.Context, token solana.PublicKey) (eligibility.Eligibility, error) {
	return e.computeEligibility(ctx, token)
}

func (e *Engine) authorize(ctx context.Context, token, user solana.PublicKey) (authz.Decision, error) {
	decision, err := authz.Authorize(ctx, e.cfg.Identity, token, user)
	if err != nil {
		if authzErr, ok := err.(*authz.Error); ok {
			return authz.Decision{}, fail(mapAuthzKind(authzErr.Kind), authzErr.Msg, nil)
		}
		return authz.Decision{}, fail(ErrMisconfiguration, "authorizing claim", err)
	}
	return decision, nil
}

func (e *Engine) computeEligibility(ctx context.Context, token solana.PublicKey) (eligibility.Eligibility, error) {
	launch, _, err := e.TokenLaunch(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return eligibility.Eligibility{}, fail(ErrTokenUnknown, "token has no known launch time", err)
		}
		return eligibility.Eligibility{}, fail(ErrMisconfiguration, "fetching token launch time", err)
	}

	totalMinted, err := e.TotalMinted(ctx, token)
	if err != nil {
		return eligibility.Eligibility{}, fail(ErrMisconfiguration, "fetching total minted", err)
	}

	return eligibility.Compute(e.cfg.EligibilityParams, launch, time.Now(), totalMinted), nil
}

// TokenLaunch and TotalMinted implement verifier.EligibilityStore, letting
// the engine itself serve as the re-eligibility collaborator the Verifier
// calls back into, rather than duplicating the gateway/identity wiring in a
// second type.
func (e *Engine) TokenLaunch(ctx context.Context, token solana.PublicKey) (time.Time, eligibility.Params, error) {
	launch, err := e.cfg.Identity.GetTokenLaunchTime(ctx, token)
	if err != nil {
		return time.Time{}, eligibility.Params{}, err
	}
	return launch, e.cfg.EligibilityParams, nil
}

// TotalMinted reads the mint's on-chain raw supply and scales it back to
// whole-token units, matching how EligibilityCalculator's inputs and
// outputs are unscaled throughout (SPEC_FULL.md's resolution of the
// "tokensPerPeriod unit" open question).
func (e *Engine) TotalMinted(ctx context.Context, token solana.PublicKey) (*big.Int, error) {
	info, err := e.cfg.Gateway.GetMint(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.Supply == nil {
		return big.NewInt(0), nil
	}
	return bigutil.DivPow10(info.Supply, info.Decimals), nil
}
