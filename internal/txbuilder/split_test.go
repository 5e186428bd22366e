package txbuilder

import (
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// Amount conservation (spec.md §8): adminAmount + sum(claimers) == amount
// exactly, for a sweep of requested amounts.
func TestComputeSplit_AmountConservation(t *testing.T) {
	dev := solana.NewWallet().PublicKey()

	for _, amt := range []int64{1, 2, 3, 7, 10, 99, 100, 1_000_000, 999_999_999} {
		split, err := ComputeSplit(big.NewInt(amt), 90, dev)
		require.NoError(t, err)

		sum := new(big.Int).Add(split.AdminAmount, split.ClaimersTotal)
		require.Equal(t, big.NewInt(amt), sum, "amount=%d", amt)

		recipientsSum := big.NewInt(0)
		for _, r := range split.Claimers {
			recipientsSum.Add(recipientsSum, r.RawAmount)
		}
		require.Equal(t, split.ClaimersTotal, recipientsSum, "amount=%d", amt)
	}
}

// Scenario 1 of spec.md §8: amount 2,000,000 at 90/10 split.
func TestComputeSplit_HappyPathNumbers(t *testing.T) {
	dev := solana.NewWallet().PublicKey()
	split, err := ComputeSplit(big.NewInt(2_000_000), 90, dev)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(1_800_000), split.ClaimersTotal)
	require.Equal(t, big.NewInt(200_000), split.AdminAmount)
}

func TestComputeSplit_RejectsZeroAndNegative(t *testing.T) {
	dev := solana.NewWallet().PublicKey()

	_, err := ComputeSplit(big.NewInt(0), 90, dev)
	require.Error(t, err)

	_, err = ComputeSplit(big.NewInt(-5), 90, dev)
	require.Error(t, err)
}

func TestComputeSplit_IntegerDivisionResidueGoesToAdmin(t *testing.T) {
	dev := solana.NewWallet().PublicKey()
	// 7 * 90 / 100 = 6 (integer division), admin absorbs the residue of 1.
	split, err := ComputeSplit(big.NewInt(7), 90, dev)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(6), split.ClaimersTotal)
	require.Equal(t, big.NewInt(1), split.AdminAmount)
}
