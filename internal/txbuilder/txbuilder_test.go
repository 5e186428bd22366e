package txbuilder

import (
	"context"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	decimals      uint8
	mintAuthority solana.PublicKey
	blockhash     solana.Hash
}

func (f *fakeGateway) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return f.blockhash, 1000, nil
}

func (f *fakeGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	return hash == f.blockhash, nil
}

func (f *fakeGateway) GetMint(ctx context.Context, mint solana.PublicKey) (gateway.MintInfo, error) {
	return gateway.MintInfo{Decimals: f.decimals, MintAuthority: &f.mintAuthority}, nil
}

func (f *fakeGateway) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts gateway.SendOptions) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (f *fakeGateway) GetSignatureStatus(ctx context.Context, sig solana.Signature) (gateway.SignatureStatus, error) {
	return gateway.SignatureStatus{}, nil
}

func testConfig(mintAuthority, admin solana.PublicKey) Config {
	return Config{
		ProtocolMintAuthority:  mintAuthority,
		AdminWallet:            admin,
		SplitPercentToClaimers: 90,
	}
}

func TestBuild_HappyPath(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	user := creator
	token := solana.NewWallet().PublicKey()

	gw := &fakeGateway{decimals: 6, mintAuthority: mintAuthority, blockhash: solana.Hash(solana.NewWallet().PublicKey())}

	built, err := Build(context.Background(), gw, testConfig(mintAuthority, admin),
		token, user, creator, big.NewInt(2_000_000), big.NewInt(2_000_000))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1_800_000), built.Split.ClaimersTotal)
	require.Equal(t, big.NewInt(200_000), built.Split.AdminAmount)
	require.NotZero(t, built.Fingerprint)
}

func TestBuild_MintAuthorityMismatch(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	wrongAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	gw := &fakeGateway{decimals: 6, mintAuthority: wrongAuthority, blockhash: solana.Hash(solana.NewWallet().PublicKey())}

	_, err := Build(context.Background(), gw, testConfig(mintAuthority, admin),
		token, creator, creator, big.NewInt(100), big.NewInt(100))
	require.Error(t, err)
	require.Equal(t, KindMintAuthorityMismatch, err.(*Error).Kind)
}

func TestBuild_AmountExceedsAvailable(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	gw := &fakeGateway{decimals: 6, mintAuthority: mintAuthority, blockhash: solana.Hash(solana.NewWallet().PublicKey())}

	_, err := Build(context.Background(), gw, testConfig(mintAuthority, admin),
		token, creator, creator, big.NewInt(1000), big.NewInt(500))
	require.Error(t, err)
	require.Equal(t, KindAmountExceedsAvailable, err.(*Error).Kind)
}

func TestBuild_RejectsAboveSafeMax(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	over := new(big.Int).Add(SafeMaxAmount, big.NewInt(1))
	gw := &fakeGateway{decimals: 6, mintAuthority: mintAuthority, blockhash: solana.Hash(solana.NewWallet().PublicKey())}

	_, err := Build(context.Background(), gw, testConfig(mintAuthority, admin),
		token, creator, creator, over, over)
	require.Error(t, err)
	require.Equal(t, KindInvalidAmount, err.(*Error).Kind)
}

// A legal amount (well under SafeMaxAmount) whose raw scaling by a
// realistic SPL decimals count overflows uint64 must fail closed rather
// than wrap, per spec.md §8's Amount Conservation property.
func TestBuild_RejectsOverflowingRawAmount(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	amount := new(big.Int).Exp(big.NewInt(10), big.NewInt(13), nil) // 10^13, well under SafeMaxAmount
	gw := &fakeGateway{decimals: 9, mintAuthority: mintAuthority, blockhash: solana.Hash(solana.NewWallet().PublicKey())}

	_, err := Build(context.Background(), gw, testConfig(mintAuthority, admin),
		token, creator, creator, amount, amount)
	require.Error(t, err)
	require.Equal(t, KindInvalidAmount, err.(*Error).Kind)
}

// Fingerprint is a deterministic function of the message contents: building
// twice from identical inputs (including blockhash) yields an identical
// fingerprint.
func TestFingerprint_Deterministic(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()
	bh := solana.Hash(solana.NewWallet().PublicKey())

	gw := &fakeGateway{decimals: 6, mintAuthority: mintAuthority, blockhash: bh}
	cfg := testConfig(mintAuthority, admin)

	b1, err := Build(context.Background(), gw, cfg, token, creator, creator, big.NewInt(1000), big.NewInt(1000))
	require.NoError(t, err)
	b2, err := Build(context.Background(), gw, cfg, token, creator, creator, big.NewInt(1000), big.NewInt(1000))
	require.NoError(t, err)

	require.Equal(t, b1.Fingerprint, b2.Fingerprint)
}

// Tamper sensitivity (spec.md §8): changing the amount changes the
// fingerprint.
func TestFingerprint_ChangesWithAmount(t *testing.T) {
	mintAuthority := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()
	bh := solana.Hash(solana.NewWallet().PublicKey())

	gw := &fakeGateway{decimals: 6, mintAuthority: mintAuthority, blockhash: bh}
	cfg := testConfig(mintAuthority, admin)

	b1, err := Build(context.Background(), gw, cfg, token, creator, creator, big.NewInt(1000), big.NewInt(5000))
	require.NoError(t, err)
	b2, err := Build(context.Background(), gw, cfg, token, creator, creator, big.NewInt(2000), big.NewInt(5000))
	require.NoError(t, err)

	require.NotEqual(t, b1.Fingerprint, b2.Fingerprint)
}
