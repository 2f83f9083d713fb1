package split

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/money"
)

func TestAllocateEqualConcrete(t *testing.T) {
	shares, err := AllocateEqual(money.MustParse("100.00"), 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"33.34", "33.33", "33.33"}, asStrings(shares),
		"first participant absorbs the one-cent remainder")

	// payer excluded: divisor is 3, the trailing slot (the payer's, placed
	// last by the caller) stays zero.
	shares, err = AllocateEqual(money.MustParse("10.00"), 4, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"3.34", "3.33", "3.33", "0.00"}, asStrings(shares))
}

func TestAllocateEqualSumProperty(t *testing.T) {
	// Exhaustive sweep over small totals and counts, both payer modes.
	// Covers totals not divisible by the count and totals with fewer cents
	// than participants.
	for cents := int64(0); cents <= 500; cents++ {
		total := money.FromMinorUnits(cents)
		for count := 1; count <= 7; count++ {
			for _, payerIncluded := range []bool{true, false} {
				shares, err := AllocateEqual(total, count, payerIncluded)
				require.NoError(t, err)
				require.Len(t, shares, count)

				divisor := count
				if !payerIncluded {
					divisor = count - 1
				}
				if divisor <= 0 {
					for _, s := range shares {
						require.True(t, s.IsZero(),
							"zero divisor must yield zero shares")
					}
					continue
				}

				require.True(t, money.Sum(shares).Equal(total),
					"sum mismatch for total=%s count=%d included=%v",
					total, count, payerIncluded)

				base := total.DivTrunc(int64(divisor))
				bump := base.Add(money.FromMinorUnits(1))
				remainder := total.Sub(base.MulInt(int64(divisor))).MinorUnits()

				bumped := int64(0)
				for i, s := range shares {
					if i >= divisor {
						require.True(t, s.IsZero(),
							"slot past the divisor must stay zero")
						continue
					}
					switch {
					case s.Equal(bump):
						bumped++
						require.Equal(t, bumped, int64(i)+1,
							"extra cents must go to the leading participants")
					case s.Equal(base):
						// first-N-in-order: every bumped share precedes
						// every base share
						require.GreaterOrEqual(t, int64(i), bumped)
					default:
						t.Fatalf("share %s is neither base %s nor base+0.01", s, base)
					}
				}
				require.Equal(t, remainder, bumped,
					"number of bumped shares must equal the remainder in cents")
			}
		}
	}
}

func TestAllocateEqualDegenerateDivisor(t *testing.T) {
	// One participant who is excluded from paying their own share.
	shares, err := AllocateEqual(money.MustParse("50.00"), 1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.00"}, asStrings(shares))
}

func TestAllocateEqualZeroTotal(t *testing.T) {
	shares, err := AllocateEqual(money.Zero(), 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.00", "0.00", "0.00"}, asStrings(shares))
}

func TestAllocateEqualRejectsBadInput(t *testing.T) {
	_, err := AllocateEqual(money.MustParse("10.00"), 0, true)
	assert.True(t, apperr.IsValidation(err))

	_, err = AllocateEqual(money.MustParse("-1.00"), 2, true)
	assert.True(t, apperr.IsValidation(err))
}

func TestAllocateEqualFewerCentsThanParticipants(t *testing.T) {
	shares, err := AllocateEqual(money.FromMinorUnits(2), 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.01", "0.01", "0.00", "0.00", "0.00"}, asStrings(shares))
}

func asStrings(shares []money.Money) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.String()
	}
	return out
}

func ExampleAllocateEqual() {
	shares, _ := AllocateEqual(money.MustParse("100.00"), 3, true)
	for _, s := range shares {
		fmt.Println(s)
	}
	// Output:
	// 33.34
	// 33.33
	// 33.33
}
