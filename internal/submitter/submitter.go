// Package submitter implements the Submitter of spec.md §4.7: partial-sign
// a verified claim transaction as the protocol mint-authority, dispatch it
// to the chain gateway, and poll its signature status to a terminal state.
package submitter

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/gateway"
)

var log = build.NewSubLogger("SUBM", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Kind enumerates the Submitter's terminal failure kinds of spec.md §4.7.
type Kind int

const (
	KindNone Kind = iota
	KindTransactionFailed
	KindConfirmationTimeout
	KindSubmitFailed
)

// Error wraps a submission failure with its Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Update is one tick of submission progress, published on the caller's
// optional updates channel so internal/api's websocket relay (spec.md §6,
// the streaming confirmation endpoint) can mirror it to a connected client.
// It is purely a UX convenience; Submit's return value is authoritative.
type Update struct {
	TransactionKey string
	Attempt        int
	Status         gateway.SignatureStatus
	Done           bool
	Err            error
}

// Result is Submit's success output.
type Result struct {
	Signature solana.Signature
	Attempts  int
	Status    gateway.SignatureStatus
}

// Submit partially signs tx with mintAuthority (adding its signature at
// whatever index the message assigns it, leaving the user's signature
// already in place), dispatches it through gw, and polls gw for a terminal
// status per poll. If updates is non-nil, one Update is sent per poll tick
// and on the terminal outcome; Submit never blocks on a full or absent
// receiver beyond a single best-effort non-blocking send.
func Submit(ctx context.Context, gw gateway.Gateway, mintAuthority solana.PrivateKey, tx *solana.Transaction, poll gateway.PollConfig, transactionKey string, updates chan<- Update) (Result, error) {
	// Sign only adds signatures for keys it has a private key for, so the
	// user's signature already present on tx is left untouched — this is
	// the "partial" in partial-sign.
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(mintAuthority.PublicKey()) {
			return &mintAuthority
		}
		return nil
	}); err != nil {
		sendUpdate(updates, Update{TransactionKey: transactionKey, Done: true, Err: err})
		return Result{}, &Error{Kind: KindSubmitFailed, Msg: "partial-signing as mint authority", Err: err}
	}

	sig, err := gw.SendTransactionWithOpts(ctx, tx, gateway.SendOptions{
		SkipPreflight:       false,
		PreflightCommitment: "processed",
	})
	if err != nil {
		sendUpdate(updates, Update{TransactionKey: transactionKey, Done: true, Err: err})
		return Result{}, &Error{Kind: KindSubmitFailed, Msg: "submitting transaction to chain gateway", Err: err}
	}

	log.Infof("submitted claim transaction %s, polling status", sig)

	for attempt := 1; attempt <= poll.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			sendUpdate(updates, Update{TransactionKey: transactionKey, Attempt: attempt, Done: true, Err: ctx.Err()})
			return Result{}, &Error{Kind: KindConfirmationTimeout, Msg: "context canceled while polling signature status", Err: ctx.Err()}
		case <-time.After(poll.Interval):
		}

		status, err := gw.GetSignatureStatus(ctx, sig)
		if err != nil {
			log.Warnf("poll attempt %d: %v", attempt, err)
			sendUpdate(updates, Update{TransactionKey: transactionKey, Attempt: attempt, Err: err})
			continue
		}

		sendUpdate(updates, Update{TransactionKey: transactionKey, Attempt: attempt, Status: status, Done: status.IsTerminal()})

		if !status.IsTerminal() {
			continue
		}

		if status.Err != "" {
			return Result{}, &Error{Kind: KindTransactionFailed, Msg: "transaction failed on-chain: " + status.Err}
		}

		log.Infof("claim transaction %s confirmed after %d polls", sig, attempt)
		return Result{Signature: sig, Attempts: attempt, Status: status}, nil
	}

	sendUpdate(updates, Update{TransactionKey: transactionKey, Attempt: poll.MaxAttempts, Done: true, Err: fmt.Errorf("confirmation timeout")})
	return Result{}, &Error{Kind: KindConfirmationTimeout, Msg: "exhausted poll attempts without a terminal status"}
}

func sendUpdate(updates chan<- Update, u Update) {
	if updates == nil {
		return
	}
	select {
	case updates <- u:
	default:
	}
}
