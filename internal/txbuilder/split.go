package txbuilder

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// SplitRecipient is the sum-type recipient record of spec.md §3/§9: a list
// of {wallet, rawAmount, label}, never persisted, constructed fresh on
// every Prepare.
type SplitRecipient struct {
	Wallet    solana.PublicKey
	RawAmount *big.Int
	Label     string
}

// Split is the result of dividing a requested whole-token amount between
// the admin account and the claimer-facing recipients, in whole-token
// units (not yet scaled by 10^decimals).
type Split struct {
	ClaimersTotal *big.Int
	AdminAmount   *big.Int
	Claimers      []SplitRecipient
}

// ComputeSplit implements spec.md §4.3's 90/10 policy:
//
//	claimersTotal = (amount * splitPercent) / 100   (integer division)
//	adminAmount   = amount - claimersTotal          (exact, sum preserved)
//
// developerWallet receives the entirety of claimersTotal; Split.Claimers is
// a slice because the wire/domain model carries a list of recipients, but
// today's single-recipient policy always populates exactly one.
func ComputeSplit(amount *big.Int, splitPercent int64, developerWallet solana.PublicKey) (Split, error) {
	if amount == nil || amount.Sign() <= 0 {
		return Split{}, fmt.Errorf("amount must be positive")
	}
	if splitPercent < 0 || splitPercent > 100 {
		return Split{}, fmt.Errorf("splitPercent must be in [0, 100], got %d", splitPercent)
	}

	claimersTotal := new(big.Int).Mul(amount, big.NewInt(splitPercent))
	claimersTotal.Div(claimersTotal, big.NewInt(100))

	adminAmount := new(big.Int).Sub(amount, claimersTotal)

	return Split{
		ClaimersTotal: claimersTotal,
		AdminAmount:   adminAmount,
		Claimers: []SplitRecipient{
			{Wallet: developerWallet, RawAmount: claimersTotal, Label: "Developer"},
		},
	}, nil
}
