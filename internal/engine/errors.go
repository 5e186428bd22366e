package engine

import (
	"fmt"
	"net/http"

	"github.com/solmint/claimengine/internal/authz"
	"github.com/solmint/claimengine/internal/submitter"
	"github.com/solmint/claimengine/internal/txbuilder"
	"github.com/solmint/claimengine/internal/verifier"
)

// ErrKind enumerates every error kind of spec.md §7, surfaced to the API
// layer with a stable name and HTTP status.
type ErrKind string

const (
	ErrTokenUnknown              ErrKind = "TokenUnknown"
	ErrMissingField              ErrKind = "MissingField"
	ErrInvalidAmountFormat       ErrKind = "InvalidAmountFormat"
	ErrInvalidAmountValue        ErrKind = "InvalidAmountValue"
	ErrAmountTooLarge            ErrKind = "AmountTooLarge"
	ErrAmountExceedsAvailable    ErrKind = "AmountExceedsAvailable"
	ErrNoTokensAvailable         ErrKind = "NoTokensAvailable"
	ErrMintAuthorityMismatch     ErrKind = "MintAuthorityMismatch"
	ErrCreatorUnknown            ErrKind = "CreatorUnknown"
	ErrCreatorForbidden          ErrKind = "CreatorForbidden"
	ErrCreatorWalletInvalid      ErrKind = "CreatorWalletInvalid"
	ErrDesignatedUnverified      ErrKind = "DesignatedUnverified"
	ErrDesignatedForbidden       ErrKind = "DesignatedForbidden"
	ErrDesignatedDeniedToLauncher ErrKind = "DesignatedDeniedToLauncher"
	ErrUnknownTransactionKey     ErrKind = "UnknownTransactionKey"
	ErrSignerAbsent              ErrKind = "SignerAbsent"
	ErrSignatureInvalid          ErrKind = "SignatureInvalid"
	ErrBlockhashExpired          ErrKind = "BlockhashExpired"
	ErrTransactionModified       ErrKind = "TransactionModified"
	ErrEligibilityChanged        ErrKind = "EligibilityChanged"
	ErrRecentClaimBlocked        ErrKind = "RecentClaimBlocked"
	ErrTransactionFailed         ErrKind = "TransactionFailed"
	ErrConfirmationTimeout       ErrKind = "ConfirmationTimeout"
	ErrMisconfiguration          ErrKind = "Misconfiguration"
)

var httpStatus = map[ErrKind]int{
	ErrTokenUnknown:               http.StatusNotFound,
	ErrMissingField:               http.StatusBadRequest,
	ErrInvalidAmountFormat:        http.StatusBadRequest,
	ErrInvalidAmountValue:         http.StatusBadRequest,
	ErrAmountTooLarge:             http.StatusBadRequest,
	ErrAmountExceedsAvailable:     http.StatusBadRequest,
	ErrNoTokensAvailable:          http.StatusBadRequest,
	ErrMintAuthorityMismatch:      http.StatusBadRequest,
	ErrCreatorUnknown:             http.StatusBadRequest,
	ErrCreatorForbidden:           http.StatusForbidden,
	ErrCreatorWalletInvalid:       http.StatusBadRequest,
	ErrDesignatedUnverified:       http.StatusForbidden,
	ErrDesignatedForbidden:        http.StatusForbidden,
	ErrDesignatedDeniedToLauncher: http.StatusForbidden,
	ErrUnknownTransactionKey:      http.StatusBadRequest,
	ErrSignerAbsent:               http.StatusBadRequest,
	ErrSignatureInvalid:           http.StatusBadRequest,
	ErrBlockhashExpired:           http.StatusBadRequest,
	ErrTransactionModified:        http.StatusBadRequest,
	ErrEligibilityChanged:         http.StatusBadRequest,
	ErrRecentClaimBlocked:         http.StatusBadRequest,
	ErrTransactionFailed:          http.StatusInternalServerError,
	ErrConfirmationTimeout:        http.StatusInternalServerError,
	ErrMisconfiguration:           http.StatusInternalServerError,
}

// Error is the engine's single error type: every failure surfaced out of
// Prepare or Confirm is one of these, never a bare error.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error

	// NextInflationTime is populated only for ErrNoTokensAvailable, per
	// spec.md §7's "includes nextInflationTime" note.
	NextInflationTime int64
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus reports the status code the API layer should respond with.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func fail(kind ErrKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func mapAuthzKind(k authz.Kind) ErrKind {
	switch k {
	case authz.KindDesignatedDeniedToLauncher:
		return ErrDesignatedDeniedToLauncher
	case authz.KindDesignatedUnverified:
		return ErrDesignatedUnverified
	case authz.KindDesignatedForbidden:
		return ErrDesignatedForbidden
	case authz.KindCreatorUnknown:
		return ErrCreatorUnknown
	case authz.KindCreatorForbidden:
		return ErrCreatorForbidden
	case authz.KindCreatorWalletInvalid:
		return ErrCreatorWalletInvalid
	default:
		return ErrMisconfiguration
	}
}

func mapBuilderErr(err error) *Error {
	bErr, ok := err.(*txbuilder.Error)
	if !ok {
		return fail(ErrMisconfiguration, "building transaction", err)
	}
	switch bErr.Kind {
	case txbuilder.KindInvalidAmount:
		return fail(ErrInvalidAmountValue, bErr.Msg, bErr.Err)
	case txbuilder.KindAmountExceedsAvailable:
		return fail(ErrAmountExceedsAvailable, bErr.Msg, bErr.Err)
	case txbuilder.KindMintAuthorityMismatch:
		return fail(ErrMintAuthorityMismatch, bErr.Msg, bErr.Err)
	case txbuilder.KindCreatorWalletInvalid:
		return fail(ErrCreatorWalletInvalid, bErr.Msg, bErr.Err)
	default:
		return fail(ErrMisconfiguration, bErr.Msg, bErr.Err)
	}
}

func mapVerifierErr(err error) *Error {
	vErr, ok := err.(*verifier.Error)
	if !ok {
		return fail(ErrMisconfiguration, "verifying transaction", err)
	}
	switch vErr.Kind {
	case verifier.KindBlockhashExpired:
		return fail(ErrBlockhashExpired, vErr.Msg, vErr.Err)
	case verifier.KindSignerAbsent:
		return fail(ErrSignerAbsent, vErr.Msg, vErr.Err)
	case verifier.KindSignatureInvalid:
		return fail(ErrSignatureInvalid, vErr.Msg, vErr.Err)
	case verifier.KindTransactionModified:
		return fail(ErrTransactionModified, vErr.Msg, vErr.Err)
	case verifier.KindAuthorizationFailed:
		return fail(mapAuthzKind(vErr.AuthzKind), vErr.Msg, vErr.Err)
	case verifier.KindEligibilityChanged:
		return fail(ErrEligibilityChanged, vErr.Msg, vErr.Err)
	default:
		return fail(ErrMisconfiguration, vErr.Msg, vErr.Err)
	}
}

func mapSubmitterErr(err error) *Error {
	sErr, ok := err.(*submitter.Error)
	if !ok {
		return fail(ErrMisconfiguration, "submitting transaction", err)
	}
	switch sErr.Kind {
	case submitter.KindTransactionFailed:
		return fail(ErrTransactionFailed, sErr.Msg, sErr.Err)
	case submitter.KindConfirmationTimeout:
		return fail(ErrConfirmationTimeout, sErr.Msg, sErr.Err)
	default:
		return fail(ErrMisconfiguration, sErr.Msg, sErr.Err)
	}
}
