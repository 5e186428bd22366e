// Package eligibility implements the EligibilityCalculator of spec.md §4.1:
// a pure, deterministic function of a token's launch time, the protocol's
// emission constants, and the amount already minted, which is what the rest
// of the engine consults before authorizing or signing anything.
package eligibility

import (
	"math/big"
	"time"

	"github.com/decred/slog"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/bigutil"
)

var log = build.NewSubLogger("ELGB", nil)

// UseLogger installs a new root logger once the daemon's RotatingLogWriter
// is ready.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Params are the protocol-wide emission constants, configured once at
// startup (spec.md §6, "Configuration").
type Params struct {
	// TokensPerPeriod is the whole-unit emission granted per elapsed
	// InflationPeriod.
	TokensPerPeriod *big.Int

	// InflationPeriod is the fixed interval Δ after which
	// TokensPerPeriod more becomes claimable.
	InflationPeriod time.Duration
}

// Eligibility is the full snapshot spec.md §3 defines.
type Eligibility struct {
	TotalMinted       *big.Int
	AvailableToClaim  *big.Int
	MaxClaimableNow   *big.Int
	TokensPerPeriod   *big.Int
	InflationPeriods  int64
	LaunchTime        time.Time
	NextInflationTime time.Time
	CanClaimNow       bool
}

// Compute derives an Eligibility snapshot for a token launched at launch,
// with totalMinted already observed on-chain, as of now. now and launch
// must both be read once by the caller (spec.md §9, "Clock") — Compute
// itself never touches the wall clock.
func Compute(params Params, launch, now time.Time, totalMinted *big.Int) Eligibility {
	elapsed := now.Sub(launch)

	var periods int64
	if elapsed > 0 {
		periods = int64(elapsed / params.InflationPeriod)
	}

	maxClaimableNow := new(big.Int).Mul(
		params.TokensPerPeriod, big.NewInt(periods),
	)
	available := bigutil.SubOrZero(maxClaimableNow, totalMinted)

	nextInflation := launch.Add(
		time.Duration(periods+1) * params.InflationPeriod,
	)

	e := Eligibility{
		TotalMinted:       new(big.Int).Set(totalMinted),
		AvailableToClaim:  available,
		MaxClaimableNow:   maxClaimableNow,
		TokensPerPeriod:   new(big.Int).Set(params.TokensPerPeriod),
		InflationPeriods:  periods,
		LaunchTime:        launch,
		NextInflationTime: nextInflation,
		CanClaimNow:       available.Sign() > 0,
	}

	log.Debugf("computed eligibility: periods=%d maxClaimable=%s available=%s",
		periods, maxClaimableNow, available)

	return e
}

// TimeUntilNextClaim reports the duration until NextInflationTime, floored
// at zero, for the wire response of spec.md §6.
func (e Eligibility) TimeUntilNextClaim(now time.Time) time.Duration {
	d := e.NextInflationTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
