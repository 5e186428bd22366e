package authz

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	designated *DesignatedRecord
	creator    *solana.PublicKey
	err        error
}

func (f *fakeRegistry) GetTokenCreatorWallet(ctx context.Context, token solana.PublicKey) (*solana.PublicKey, error) {
	return f.creator, f.err
}

func (f *fakeRegistry) GetDesignatedClaimByToken(ctx context.Context, token solana.PublicKey) (*DesignatedRecord, error) {
	return f.designated, f.err
}

func TestAuthorize_CreatorMode(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{creator: &creator}

	d, err := Authorize(context.Background(), reg, token, creator)
	require.NoError(t, err)
	require.Equal(t, ModeCreator, d.Mode)
	require.True(t, d.AuthorizedWallet.Equals(creator))
}

func TestAuthorize_CreatorForbidden(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	token := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{creator: &creator}

	_, err := Authorize(context.Background(), reg, token, other)
	require.Error(t, err)
	require.Equal(t, KindCreatorForbidden, err.(*Error).Kind)
}

func TestAuthorize_CreatorUnknown(t *testing.T) {
	reg := &fakeRegistry{creator: nil}
	_, err := Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	require.Equal(t, KindCreatorUnknown, err.(*Error).Kind)
}

// The original launcher is always denied on a designated token, regardless
// of verification state (universal invariant, spec.md §8).
func TestAuthorize_DesignatedDeniedToLauncher(t *testing.T) {
	launcher := solana.NewWallet().PublicKey()
	verified := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{designated: &DesignatedRecord{
		OriginalLauncher: launcher,
		VerifiedExternal: &verified,
	}}

	_, err := Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), launcher)
	require.Error(t, err)
	require.Equal(t, KindDesignatedDeniedToLauncher, err.(*Error).Kind)
}

func TestAuthorize_DesignatedUnverified(t *testing.T) {
	launcher := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{designated: &DesignatedRecord{OriginalLauncher: launcher}}

	_, err := Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), stranger)
	require.Error(t, err)
	require.Equal(t, KindDesignatedUnverified, err.(*Error).Kind)
}

func TestAuthorize_DesignatedVerifiedExternalOrEmbedded(t *testing.T) {
	launcher := solana.NewWallet().PublicKey()
	external := solana.NewWallet().PublicKey()
	embedded := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{designated: &DesignatedRecord{
		OriginalLauncher: launcher,
		VerifiedExternal: &external,
		VerifiedEmbedded: &embedded,
	}}

	d, err := Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), external)
	require.NoError(t, err)
	require.Equal(t, ModeDesignated, d.Mode)

	d, err = Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), embedded)
	require.NoError(t, err)
	require.Equal(t, ModeDesignated, d.Mode)
}

func TestAuthorize_DesignatedForbidden(t *testing.T) {
	launcher := solana.NewWallet().PublicKey()
	external := solana.NewWallet().PublicKey()
	stranger := solana.NewWallet().PublicKey()

	reg := &fakeRegistry{designated: &DesignatedRecord{
		OriginalLauncher: launcher,
		VerifiedExternal: &external,
	}}

	_, err := Authorize(context.Background(), reg, solana.NewWallet().PublicKey(), stranger)
	require.Error(t, err)
	require.Equal(t, KindDesignatedForbidden, err.(*Error).Kind)
}
