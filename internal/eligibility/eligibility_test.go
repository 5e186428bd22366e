package eligibility

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		TokensPerPeriod: big.NewInt(1_000_000),
		InflationPeriod: time.Hour,
	}
}

// Scenario 1 of spec.md §8: token launched 3 x Δ ago, totalMinted = 0.
func TestCompute_HappyPath(t *testing.T) {
	launch := time.Unix(0, 0)
	now := launch.Add(3 * time.Hour)

	e := Compute(testParams(), launch, now, big.NewInt(0))

	require.EqualValues(t, 3, e.InflationPeriods)
	require.Equal(t, big.NewInt(3_000_000), e.MaxClaimableNow)
	require.Equal(t, big.NewInt(3_000_000), e.AvailableToClaim)
	require.True(t, e.CanClaimNow)
	require.Equal(t, launch.Add(4*time.Hour), e.NextInflationTime)
}

func TestCompute_BeforeLaunch(t *testing.T) {
	launch := time.Unix(1000, 0)
	now := launch.Add(-time.Minute)

	e := Compute(testParams(), launch, now, big.NewInt(0))

	require.EqualValues(t, 0, e.InflationPeriods)
	require.Equal(t, big.NewInt(0), e.MaxClaimableNow)
	require.Equal(t, big.NewInt(0), e.AvailableToClaim)
	require.False(t, e.CanClaimNow)
}

// availableToClaim must saturate at zero, never go negative, when
// totalMinted exceeds maxClaimableNow (spec.md invariant).
func TestCompute_SaturatingSub(t *testing.T) {
	launch := time.Unix(0, 0)
	now := launch.Add(time.Hour)

	e := Compute(testParams(), launch, now, big.NewInt(5_000_000))

	require.Equal(t, big.NewInt(0), e.AvailableToClaim)
	require.False(t, e.CanClaimNow)
}

func TestCompute_EligibilityDrift(t *testing.T) {
	launch := time.Unix(0, 0)
	now := launch.Add(2 * time.Hour)

	before := Compute(testParams(), launch, now, big.NewInt(500_000))
	require.Equal(t, big.NewInt(1_500_000), before.AvailableToClaim)

	// An out-of-band mint brings totalMinted up before Confirm re-checks.
	after := Compute(testParams(), launch, now, big.NewInt(1_500_000))
	require.Equal(t, big.NewInt(500_000), after.AvailableToClaim)
}

func TestTimeUntilNextClaim_Floor(t *testing.T) {
	launch := time.Unix(0, 0)
	now := launch.Add(90 * time.Minute)
	e := Compute(testParams(), launch, now, big.NewInt(0))

	// nextInflationTime = launch + 2h, now = launch + 1h30m.
	require.Equal(t, 30*time.Minute, e.TimeUntilNextClaim(now))

	// Past the next inflation boundary, the duration floors at zero
	// rather than going negative.
	require.Equal(t, time.Duration(0), e.TimeUntilNextClaim(now.Add(time.Hour)))
}
