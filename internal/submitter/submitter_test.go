package submitter

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/solmint/claimengine/internal/gateway"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	sendErr      error
	sig          solana.Signature
	statuses     []gateway.SignatureStatus
	statusErrs   []error
	call         int
	sentTx       *solana.Transaction
}

func (f *fakeGateway) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	return solana.Hash{}, 0, nil
}

func (f *fakeGateway) IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error) {
	return true, nil
}

func (f *fakeGateway) GetMint(ctx context.Context, mint solana.PublicKey) (gateway.MintInfo, error) {
	return gateway.MintInfo{}, nil
}

func (f *fakeGateway) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts gateway.SendOptions) (solana.Signature, error) {
	f.sentTx = tx
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return f.sig, nil
}

func (f *fakeGateway) GetSignatureStatus(ctx context.Context, sig solana.Signature) (gateway.SignatureStatus, error) {
	idx := f.call
	f.call++
	if idx >= len(f.statuses) {
		return gateway.SignatureStatus{}, nil
	}
	var err error
	if idx < len(f.statusErrs) {
		err = f.statusErrs[idx]
	}
	return f.statuses[idx], err
}

func buildUnsignedTx(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	recipient := solana.NewWallet().PublicKey()
	ix := solana.NewInstruction(
		solana.SystemProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(payer, true, true), solana.NewAccountMeta(recipient, true, false)},
		[]byte{0},
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer))
	require.NoError(t, err)
	return tx
}

func fastPoll() gateway.PollConfig {
	return gateway.PollConfig{Interval: time.Millisecond, MaxAttempts: 5}
}

func TestSubmit_HappyPath(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	tx := buildUnsignedTx(t, authority.PublicKey())

	gw := &fakeGateway{
		statuses: []gateway.SignatureStatus{
			{Found: false},
			{Found: true, ConfirmationStatus: "confirmed"},
		},
	}

	result, err := Submit(context.Background(), gw, authority, tx, fastPoll(), "key1", nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.Attempts)
	require.Equal(t, "confirmed", result.Status.ConfirmationStatus)
}

func TestSubmit_TransactionFailed(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	tx := buildUnsignedTx(t, authority.PublicKey())

	gw := &fakeGateway{
		statuses: []gateway.SignatureStatus{
			{Found: true, Err: "insufficient funds"},
		},
	}

	_, err := Submit(context.Background(), gw, authority, tx, fastPoll(), "key1", nil)
	require.Error(t, err)
	require.Equal(t, KindTransactionFailed, err.(*Error).Kind)
}

func TestSubmit_ConfirmationTimeout(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	tx := buildUnsignedTx(t, authority.PublicKey())

	gw := &fakeGateway{} // never returns a terminal status

	_, err := Submit(context.Background(), gw, authority, tx, fastPoll(), "key1", nil)
	require.Error(t, err)
	require.Equal(t, KindConfirmationTimeout, err.(*Error).Kind)
}

func TestSubmit_SendFailure(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	tx := buildUnsignedTx(t, authority.PublicKey())

	gw := &fakeGateway{sendErr: context.DeadlineExceeded}

	_, err := Submit(context.Background(), gw, authority, tx, fastPoll(), "key1", nil)
	require.Error(t, err)
	require.Equal(t, KindSubmitFailed, err.(*Error).Kind)
}

func TestSubmit_PublishesUpdates(t *testing.T) {
	authority := solana.NewWallet().PrivateKey
	tx := buildUnsignedTx(t, authority.PublicKey())

	gw := &fakeGateway{
		statuses: []gateway.SignatureStatus{
			{Found: true, ConfirmationStatus: "finalized"},
		},
	}

	updates := make(chan Update, 4)
	_, err := Submit(context.Background(), gw, authority, tx, fastPoll(), "key1", updates)
	require.NoError(t, err)

	select {
	case u := <-updates:
		require.Equal(t, "key1", u.TransactionKey)
		require.True(t, u.Done)
	default:
		t.Fatal("expected at least one update to be published")
	}
}
