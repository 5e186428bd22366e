package gateway

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cenkalti/backoff/v5"
	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/solmint/claimengine/build"
)

var log = build.NewSubLogger("GWAY", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// mintAccountLen is the on-wire size of an SPL Token Mint account:
// mintAuthorityOption(4) + mintAuthority(32) + supply(8) + decimals(1) +
// isInitialized(1) + freezeAuthorityOption(4) + freezeAuthority(32).
const mintAccountLen = 82

// SolanaGateway implements Gateway against a live Solana RPC endpoint. Only
// the read-only fetches (latest blockhash, blockhash validity, mint
// metadata) are wrapped in bounded backoff, grounded on the same retry shape the Solana reference file in
// the example pack uses (buildAndSubmitTransaction); submission and status
// polling are not retried here, matching spec.md §7 ("the engine... does
// not attempt resubmission" after a failure).
type SolanaGateway struct {
	client *rpc.Client
}

// New wraps an RPC client pointed at endpoint.
func New(endpoint string) *SolanaGateway {
	return &SolanaGateway{client: rpc.New(endpoint)}
}

func withRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op, backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(4))
}

func (g *SolanaGateway) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	type result struct {
		hash   solana.Hash
		height uint64
	}
	r, err := withRetry(ctx, func() (result, error) {
		resp, err := g.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return result{}, err
		}
		return result{
			hash:   resp.Value.Blockhash,
			height: resp.Value.LastValidBlockHeight,
		}, nil
	})
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("GetLatestBlockhash: %w", err)
	}
	return r.hash, r.height, nil
}

func (g *SolanaGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	resp, err := withRetry(ctx, func() (bool, error) {
		r, err := g.client.IsBlockhashValid(ctx, hash, rpc.CommitmentProcessed)
		if err != nil {
			return false, err
		}
		return r.Value, nil
	})
	if err != nil {
		return false, fmt.Errorf("IsBlockhashValid: %w", err)
	}
	return resp, nil
}

func (g *SolanaGateway) GetMint(ctx context.Context, mint solana.PublicKey) (MintInfo, error) {
	info, err := withRetry(ctx, func() (MintInfo, error) {
		acct, err := g.client.GetAccountInfo(ctx, mint)
		if err != nil {
			return MintInfo{}, err
		}
		if acct == nil || acct.Value == nil {
			return MintInfo{}, fmt.Errorf("mint account %s not found", mint)
		}
		return decodeMintAccount(acct.Value.Data.GetBinary())
	})
	if err != nil {
		return MintInfo{}, fmt.Errorf("GetMint: %w", err)
	}
	return info, nil
}

// decodeMintAccount parses the raw SPL Token Mint account layout. This is
// hand-rolled rather than delegated to a struct-unmarshaling helper because
// the field we most need (the mint-authority COption) is the one field
// whose absent/present encoding is easiest to get subtly wrong through an
// unfamiliar generic decoder; a direct byte-offset read keeps that contract
// explicit and auditable.
func decodeMintAccount(data []byte) (MintInfo, error) {
	if len(data) < mintAccountLen {
		return MintInfo{}, fmt.Errorf("mint account data too short: %d bytes", len(data))
	}

	hasAuthority := data[0] == 1
	var authority *solana.PublicKey
	if hasAuthority {
		var pk solana.PublicKey
		copy(pk[:], data[4:36])
		authority = &pk
	}

	supply := new(big.Int).SetUint64(binary.LittleEndian.Uint64(data[36:44]))
	decimals := data[44]

	return MintInfo{Decimals: decimals, MintAuthority: authority, Supply: supply}, nil
}

func (g *SolanaGateway) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts SendOptions) (solana.Signature, error) {
	commitment := rpc.CommitmentProcessed
	if opts.PreflightCommitment != "" {
		commitment = rpc.CommitmentType(opts.PreflightCommitment)
	}

	sig, err := g.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("SendTransactionWithOpts: %w", err)
	}
	return sig, nil
}

func (g *SolanaGateway) GetSignatureStatus(ctx context.Context, sig solana.Signature) (SignatureStatus, error) {
	resp, err := g.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return SignatureStatus{}, fmt.Errorf("GetSignatureStatuses: %w", err)
	}
	if len(resp.Value) == 0 || resp.Value[0] == nil {
		return SignatureStatus{Found: false}, nil
	}

	v := resp.Value[0]
	status := SignatureStatus{Found: true}
	if v.Err != nil {
		status.Err = fmt.Sprintf("%v", v.Err)
	}
	if v.ConfirmationStatus != "" {
		status.ConfirmationStatus = string(v.ConfirmationStatus)
	}
	return status, nil
}

var _ Gateway = (*SolanaGateway)(nil)
