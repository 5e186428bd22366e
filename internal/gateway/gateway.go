// Package gateway defines the Chain gateway collaborator contract of
// spec.md §6 and a concrete implementation against Solana.
package gateway

import (
	"context"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

// MintInfo is the subset of SPL mint account state the engine needs.
type MintInfo struct {
	Decimals      uint8
	MintAuthority *solana.PublicKey // nil if the mint authority has been revoked
	Supply        *big.Int          // raw on-chain supply, in 10^Decimals units
}

// SignatureStatus is the terminal-state projection of spec.md §4.7.
type SignatureStatus struct {
	Found              bool
	Err                string // non-empty if the transaction failed on-chain
	ConfirmationStatus string // "processed" | "confirmed" | "finalized"
}

// IsTerminal reports whether this status is a success or failure the
// Submitter should stop polling on.
func (s SignatureStatus) IsTerminal() bool {
	if !s.Found {
		return false
	}
	if s.Err != "" {
		return true
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// SendOptions mirrors the subset of send-transaction preflight options
// spec.md §4.7 requires.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
}

// Gateway is the Chain gateway collaborator of spec.md §1/§6.
type Gateway interface {
	// GetLatestBlockhash returns the current blockhash and the height it
	// remains valid through.
	GetLatestBlockhash(ctx context.Context) (hash solana.Hash, lastValidHeight uint64, err error)

	// IsBlockhashValid reports whether hash can still be used as a
	// transaction's recent blockhash.
	IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error)

	// GetMint fetches the mint's decimals and current mint authority.
	GetMint(ctx context.Context, mint solana.PublicKey) (MintInfo, error)

	// SendTransactionWithOpts submits a fully signed transaction.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error)

	// GetSignatureStatus polls the terminal status of a submitted
	// transaction.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (SignatureStatus, error)
}

// PollConfig configures Submitter's status-polling loop (spec.md §4.7).
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPollConfig matches spec.md §6's defaults (200ms x 20 attempts).
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: 200 * time.Millisecond, MaxAttempts: 20}
}
