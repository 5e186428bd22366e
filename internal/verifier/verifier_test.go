package verifier

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/internal/authz"
	"github.com/solmint/claimengine/internal/eligibility"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	blockhashValid bool
}

func (f *fakeGateway) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{}, 0, nil
}

func (f *fakeGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	return f.blockhashValid, nil
}

func (f *fakeGateway) GetMint(ctx context.Context, mint solana.PublicKey) (gateway.MintInfo, error) {
	return gateway.MintInfo{}, nil
}

func (f *fakeGateway) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts gateway.SendOptions) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (f *fakeGateway) GetSignatureStatus(ctx context.Context, sig solana.Signature) (gateway.SignatureStatus, error) {
	return gateway.SignatureStatus{}, nil
}

type fakeRegistry struct {
	creator *solana.PublicKey
}

func (f *fakeRegistry) GetTokenCreatorWallet(ctx context.Context, token solana.PublicKey) (*solana.PublicKey, error) {
	return f.creator, nil
}

func (f *fakeRegistry) GetDesignatedClaimByToken(ctx context.Context, token solana.PublicKey) (*authz.DesignatedRecord, error) {
	return nil, nil
}

type fakeEligibilityStore struct {
	launch      time.Time
	params      eligibility.Params
	totalMinted *big.Int
}

func (f *fakeEligibilityStore) TokenLaunch(ctx context.Context, token solana.PublicKey) (time.Time, eligibility.Params, error) {
	return f.launch, f.params, nil
}

func (f *fakeEligibilityStore) TotalMinted(ctx context.Context, token solana.PublicKey) (*big.Int, error) {
	return f.totalMinted, nil
}

// buildSignedTx builds a one-signer transaction whose single instruction is
// irrelevant to the checks under test, signed by priv, and returns both the
// transaction and the fingerprint of its (unsigned) message.
func buildSignedTx(t *testing.T, priv ed25519.PrivateKey, pub solana.PublicKey) (*solana.Transaction, [32]byte) {
	t.Helper()

	recipient := solana.NewWallet().PublicKey()
	ix := solana.NewInstruction(
		solana.SystemProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(pub, true, true), solana.NewAccountMeta(recipient, true, false)},
		[]byte{0},
	)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1, 2, 3}, solana.TransactionPayer(pub))
	require.NoError(t, err)

	msgBytes, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	fp := sha256.Sum256(msgBytes)

	sig := ed25519.Sign(priv, msgBytes)
	tx.Signatures = []solana.Signature{solana.SignatureFromBytes(sig)}

	return tx, fp
}

func newKeypair(t *testing.T) (ed25519.PrivateKey, solana.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var spub solana.PublicKey
	copy(spub[:], pub)
	return priv, spub
}

func validParams(store *fakeEligibilityStore, wallet solana.PublicKey, amount *big.Int) Params {
	return Params{
		Gateway:          &fakeGateway{blockhashValid: true},
		Registry:         &fakeRegistry{creator: &wallet},
		EligibilityStore: store,
	}
}

func baseClaim(token, user, authorized solana.PublicKey, amount *big.Int, fp [32]byte) Claim {
	return Claim{
		Token:            token,
		UserWallet:       user,
		Amount:           amount,
		Fingerprint:      fp,
		AuthorizedWallet: authorized,
		Mode:             authz.ModeCreator,
	}
}

func TestVerify_HappyPath(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), fp)
	err := Verify(context.Background(), validParams(store, pub, claim.Amount), tx, claim)
	require.NoError(t, err)
}

func TestVerify_BlockhashExpired(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	params := Params{
		Gateway:          &fakeGateway{blockhashValid: false},
		Registry:         &fakeRegistry{creator: &pub},
		EligibilityStore: store,
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), fp)
	err := Verify(context.Background(), params, tx, claim)
	require.Error(t, err)
	require.Equal(t, KindBlockhashExpired, err.(*Error).Kind)
}

func TestVerify_SignerAbsent(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()
	otherWallet := solana.NewWallet().PublicKey()

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	claim := baseClaim(token, otherWallet, otherWallet, big.NewInt(500), fp)
	err := Verify(context.Background(), validParams(store, otherWallet, claim.Amount), tx, claim)
	require.Error(t, err)
	require.Equal(t, KindSignerAbsent, err.(*Error).Kind)
}

// Tamper sensitivity (spec.md §8): a transaction re-signed after its
// contents change no longer matches the prepared fingerprint, even though
// the signature itself is valid over the new bytes.
func TestVerify_TransactionModified(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, originalFP := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()

	// Re-sign after mutating an account key, simulating a tampered
	// transaction that was then validly re-signed.
	tx.Message.AccountKeys[1] = solana.NewWallet().PublicKey()
	msgBytes, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	sig := ed25519.Sign(priv, msgBytes)
	tx.Signatures = []solana.Signature{solana.SignatureFromBytes(sig)}

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), originalFP)
	err = Verify(context.Background(), validParams(store, pub, claim.Amount), tx, claim)
	require.Error(t, err)
	require.Equal(t, KindTransactionModified, err.(*Error).Kind)
}

// Signature necessity (spec.md §8): an unsigned (zero) signature at the
// authorized index fails signature validity, never reaching tamper
// detection.
func TestVerify_SignatureInvalid_WhenUnsigned(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	tx.Signatures[0] = solana.Signature{} // wipe the signature
	token := solana.NewWallet().PublicKey()

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), fp)
	err := Verify(context.Background(), validParams(store, pub, claim.Amount), tx, claim)
	require.Error(t, err)
	require.Equal(t, KindSignatureInvalid, err.(*Error).Kind)
}

func TestVerify_EligibilityChanged(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()

	// totalMinted now consumes the entire claimable amount, so the
	// previously-valid request is no longer within availableToClaim.
	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(2000),
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), fp)
	err := Verify(context.Background(), validParams(store, pub, claim.Amount), tx, claim)
	require.Error(t, err)
	require.Equal(t, KindEligibilityChanged, err.(*Error).Kind)
}

func TestVerify_AuthorizationFailed_WhenCreatorChanged(t *testing.T) {
	priv, pub := newKeypair(t)
	tx, fp := buildSignedTx(t, priv, pub)
	token := solana.NewWallet().PublicKey()
	newCreator := solana.NewWallet().PublicKey()

	store := &fakeEligibilityStore{
		launch:      time.Now().Add(-48 * time.Hour),
		params:      eligibility.Params{TokensPerPeriod: big.NewInt(1000), InflationPeriod: 24 * time.Hour},
		totalMinted: big.NewInt(0),
	}

	claim := baseClaim(token, pub, pub, big.NewInt(500), fp)
	// The registry now reports a different creator than the one this
	// claim was prepared under.
	err := Verify(context.Background(), validParams(store, newCreator, claim.Amount), tx, claim)
	require.Error(t, err)
	require.Equal(t, KindAuthorizationFailed, err.(*Error).Kind)
}
