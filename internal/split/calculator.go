// Package split partitions a monetary total into per-member shares without
// ever losing or fabricating a cent.
package split

import (
	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/money"
)

// AllocateEqual divides total into participantCount shares that sum exactly
// to total. The effective divisor is participantCount when the payer takes a
// share, participantCount-1 otherwise; a divisor of zero or less is a defined
// degenerate case yielding all-zero shares, not an error.
//
// The first divisor slots carry the truncated quotient, with the leftover
// cents handed out one at a time to the leading slots; any trailing slot
// beyond the divisor (the excluded payer's) stays zero. Which participants
// absorb the extra cent therefore depends on the order the caller lists them
// in; callers wanting reproducible results must pass a stable order, and
// callers excluding the payer must place the payer's slot last.
func AllocateEqual(total money.Money, participantCount int, payerIncluded bool) ([]money.Money, error) {
	if participantCount < 1 {
		return nil, apperr.Validationf("split: participant count %d, need at least 1", participantCount)
	}
	if total.IsNegative() {
		return nil, apperr.Validationf("split: negative total %s", total)
	}

	divisor := participantCount
	if !payerIncluded {
		divisor = participantCount - 1
	}
	if divisor <= 0 {
		return zeros(participantCount), nil
	}

	base := total.DivTrunc(int64(divisor))
	remainder := total.Sub(base.MulInt(int64(divisor)))
	return distribute(base, remainder, participantCount, divisor), nil
}

// distribute gives base to the first divisor slots, one extra cent to the
// first remainder-in-cents of those, and zero to any slot past the divisor.
func distribute(base, remainder money.Money, count, divisor int) []money.Money {
	cents := remainder.MinorUnits()
	shares := make([]money.Money, count)
	for i := range shares {
		switch {
		case i >= divisor:
			shares[i] = money.Zero()
		case int64(i) < cents:
			shares[i] = base.Add(money.FromMinorUnits(1))
		default:
			shares[i] = base
		}
	}
	return shares
}

func zeros(count int) []money.Money {
	shares := make([]money.Money, count)
	for i := range shares {
		shares[i] = money.Zero()
	}
	return shares
}
