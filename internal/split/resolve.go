package split

import (
	"github.com/shopspring/decimal"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/money"
)

// ResolvePercentages turns percentage inputs into per-member amounts summing
// exactly to total. Percentages must add up to 100. Each share is truncated
// at the cent and the residue is handed out one cent at a time in input
// order, the same tie-break as AllocateEqual.
func ResolvePercentages(total money.Money, percents []float64) ([]money.Money, error) {
	if len(percents) == 0 {
		return nil, apperr.Validationf("split: no percentages given")
	}
	if total.IsNegative() {
		return nil, apperr.Validationf("split: negative total %s", total)
	}

	hundred := decimal.NewFromInt(100)
	sum := decimal.Zero
	decs := make([]decimal.Decimal, len(percents))
	for i, p := range percents {
		if p < 0 {
			return nil, apperr.Validationf("split: negative percentage %v", p)
		}
		decs[i] = decimal.NewFromFloat(p)
		sum = sum.Add(decs[i])
	}
	if !sum.Equal(hundred) {
		return nil, apperr.Validationf("split: percentages sum to %s, need 100", sum)
	}

	shares := make([]money.Money, len(percents))
	allocated := money.Zero()
	for i, p := range decs {
		share, err := money.FromDecimal(total.Decimal().Mul(p).Div(hundred).Truncate(2))
		if err != nil {
			return nil, err
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	return topUp(shares, total.Sub(allocated)), nil
}

// ResolveShares turns share-count inputs (e.g. 2 shares for a couple, 1 for a
// single) into per-member amounts summing exactly to total.
func ResolveShares(total money.Money, counts []int) ([]money.Money, error) {
	if len(counts) == 0 {
		return nil, apperr.Validationf("split: no share counts given")
	}
	if total.IsNegative() {
		return nil, apperr.Validationf("split: negative total %s", total)
	}

	var totalShares int64
	for _, c := range counts {
		if c < 0 {
			return nil, apperr.Validationf("split: negative share count %d", c)
		}
		totalShares += int64(c)
	}
	if totalShares == 0 {
		return zeros(len(counts)), nil
	}

	shares := make([]money.Money, len(counts))
	allocated := money.Zero()
	for i, c := range counts {
		// trunc(totalCents * count / totalShares), exact in integers
		shares[i] = money.FromMinorUnits(total.MinorUnits() * int64(c) / totalShares)
		allocated = allocated.Add(shares[i])
	}
	return topUp(shares, total.Sub(allocated)), nil
}

// ResolveCustom passes externally supplied amounts through untouched. Whether
// they sum to the transaction total is checked by the orchestration layer
// before postings are generated, not here.
func ResolveCustom(amounts []money.Money) []money.Money {
	out := make([]money.Money, len(amounts))
	copy(out, amounts)
	return out
}

// topUp distributes residue cents to the first participants in order.
// Truncation guarantees residue is a non-negative whole number of cents
// smaller than the participant count.
func topUp(shares []money.Money, residue money.Money) []money.Money {
	cents := residue.MinorUnits()
	for i := int64(0); i < cents && i < int64(len(shares)); i++ {
		shares[i] = shares[i].Add(money.FromMinorUnits(1))
	}
	return shares
}
