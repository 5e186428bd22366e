// Package txbuilder implements the TransactionBuilder of spec.md §4.3: it
// assembles the unsigned claim transaction — idempotent token-account
// creation, per-recipient mint instructions, the admin mint instruction,
// blockhash and fee payer — and fingerprints it for later tamper detection.
package txbuilder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/bigutil"
	"github.com/solmint/claimengine/internal/gateway"
)

var log = build.NewSubLogger("TXBD", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Kind enumerates the TransactionBuilder failure kinds of spec.md §4.3.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidAmount
	KindAmountExceedsAvailable
	KindMintAuthorityMismatch
	KindCreatorWalletInvalid
	KindChainUnavailable
)

// Error wraps a builder failure with its Kind.
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

func fail(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// SafeMaxAmount is the implementation-defined ceiling of spec.md §4.3's
// InvalidAmount check: 10^15 whole tokens, comfortably above any real
// emission schedule while still rejecting obviously-malformed input before
// it reaches 10^decimals scaling.
var SafeMaxAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)

// Config carries the protocol-wide constants the builder needs beyond the
// per-call token/user/amount triple.
type Config struct {
	ProtocolMintAuthority solana.PublicKey
	AdminWallet           solana.PublicKey
	SplitPercentToClaimers int64 // default 90, residue to admin
}

// Built is the TransactionBuilder's output: the unsigned transaction, its
// fingerprint, and the split it computed, for the caller to log/respond
// with.
type Built struct {
	Transaction *solana.Transaction
	Fingerprint [32]byte
	Split       Split
	Decimals    uint8
	Blockhash   solana.Hash
}

// Build assembles the unsigned claim transaction for user claiming amount
// (whole-token units) of token, where creatorWallet is the Developer
// recipient for today's single-recipient split policy.
func Build(ctx context.Context, gw gateway.Gateway, cfg Config, token, user, creatorWallet solana.PublicKey, amount, availableToClaim *big.Int) (Built, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Built{}, fail(KindInvalidAmount, "amount must be a positive integer", nil)
	}
	if amount.Cmp(SafeMaxAmount) > 0 {
		return Built{}, fail(KindInvalidAmount, "amount exceeds the safe maximum", nil)
	}
	if amount.Cmp(availableToClaim) > 0 {
		return Built{}, fail(KindAmountExceedsAvailable, "amount exceeds availableToClaim", nil)
	}
	if !creatorWallet.IsOnCurve() {
		return Built{}, fail(KindCreatorWalletInvalid, "creator wallet is not a valid on-curve address", nil)
	}

	mintInfo, err := gw.GetMint(ctx, token)
	if err != nil {
		return Built{}, fail(KindChainUnavailable, "fetching mint metadata", err)
	}
	if mintInfo.MintAuthority == nil || !mintInfo.MintAuthority.Equals(cfg.ProtocolMintAuthority) {
		return Built{}, fail(KindMintAuthorityMismatch,
			"protocol mint authority does not match the on-chain mint authority", nil)
	}

	split, err := ComputeSplit(amount, cfg.SplitPercentToClaimers, creatorWallet)
	if err != nil {
		return Built{}, fail(KindInvalidAmount, "computing split", err)
	}

	blockhash, _, err := gw.GetLatestBlockhash(ctx)
	if err != nil {
		return Built{}, fail(KindChainUnavailable, "fetching latest blockhash", err)
	}

	instructions := make([]solana.Instruction, 0, 2+2*len(split.Claimers))

	instructions = append(instructions, createIdempotentATAInstruction(user, cfg.AdminWallet, token))

	for _, r := range split.Claimers {
		instructions = append(instructions, createIdempotentATAInstruction(user, r.Wallet, token))
		raw := bigutil.MulPow10(r.RawAmount, mintInfo.Decimals)
		rawU64, err := bigutil.SafeUint64(raw)
		if err != nil {
			return Built{}, fail(KindInvalidAmount, "scaled claimer amount overflows a raw mint instruction", err)
		}
		instructions = append(instructions, mintToInstruction(
			token, associatedTokenAddress(r.Wallet, token), cfg.ProtocolMintAuthority, rawU64,
		))
	}

	adminRaw := bigutil.MulPow10(split.AdminAmount, mintInfo.Decimals)
	adminRawU64, err := bigutil.SafeUint64(adminRaw)
	if err != nil {
		return Built{}, fail(KindInvalidAmount, "scaled admin amount overflows a raw mint instruction", err)
	}
	instructions = append(instructions, mintToInstruction(
		token, associatedTokenAddress(cfg.AdminWallet, token), cfg.ProtocolMintAuthority, adminRawU64,
	))

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(user))
	if err != nil {
		return Built{}, fail(KindChainUnavailable, "assembling transaction", err)
	}

	fp, err := Fingerprint(tx)
	if err != nil {
		return Built{}, fail(KindChainUnavailable, "fingerprinting transaction", err)
	}

	log.Infof("built claim transaction for token %s user %s amount %s (admin=%s claimers=%s)",
		token, user, bigutil.FormatAmount(amount), split.AdminAmount, split.ClaimersTotal)

	return Built{
		Transaction: tx,
		Fingerprint: fp,
		Split:       split,
		Decimals:    mintInfo.Decimals,
		Blockhash:   blockhash,
	}, nil
}

// Fingerprint computes SHA-256 of tx's message bytes — the exact bytes the
// user's wallet is asked to sign, per spec.md §9's design note that the
// hash must never cover a larger envelope than the signed payload.
func Fingerprint(tx *solana.Transaction) ([32]byte, error) {
	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return [32]byte{}, fmt.Errorf("marshaling transaction message: %w", err)
	}
	return sha256.Sum256(msgBytes), nil
}
