// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	"fmt"

	safemath "github.com/luxfi/lendvm/utils/math"
)

// SecondsPerYear is the accrual period rates are quoted over.
const SecondsPerYear uint64 = 31_536_000

// RateCurve is a kinked interest rate model. All fields carry 7 decimals.
//
// Below the kink the borrow rate rises linearly from Base to Base+Slope1.
// Above it the rate rises from Base+Slope1 to Base+Slope1+Slope2 at full
// utilization.
type RateCurve struct {
	Base   uint64 `serialize:"true" json:"base"`
	Slope1 uint64 `serialize:"true" json:"slope1"`
	Slope2 uint64 `serialize:"true" json:"slope2"`
	Kink   uint64 `serialize:"true" json:"kink"`
}

// DefaultRateCurve returns a curve with a 2% base rate, a kink at 80%
// utilization, 15% below the kink and 60% above it.
func DefaultRateCurve() RateCurve {
	return RateCurve{
		Base:   200_000,
		Slope1: 1_500_000,
		Slope2: 6_000_000,
		Kink:   8_000_000,
	}
}

// Verify checks that the curve is well formed.
func (c RateCurve) Verify() error {
	if c.Kink == 0 || c.Kink >= safemath.Scale7 {
		return fmt.Errorf("%w: kink %d outside (0, 1)", ErrInvalidRateCurve, c.Kink)
	}
	if _, err := c.MaxRate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRateCurve, err)
	}
	return nil
}

// MaxRate is the borrow rate at full utilization.
func (c RateCurve) MaxRate() (uint64, error) {
	rate, err := safemath.Add(c.Base, c.Slope1)
	if err != nil {
		return 0, err
	}
	return safemath.Add(rate, c.Slope2)
}

// BorrowRate returns the annual borrow rate at the given utilization.
// Utilization above 1.0 is treated as 1.0.
func (c RateCurve) BorrowRate(util uint64) (uint64, error) {
	util = min(util, safemath.Scale7)
	if util <= c.Kink {
		slope, err := safemath.MulDivCeil(c.Slope1, util, c.Kink)
		if err != nil {
			return 0, err
		}
		return safemath.Add(c.Base, slope)
	}

	// Kink < 1.0 is enforced by Verify, so the denominator is positive.
	slope, err := safemath.MulDivCeil(c.Slope2, util-c.Kink, safemath.Scale7-c.Kink)
	if err != nil {
		return 0, err
	}
	rate, err := safemath.Add(c.Base, c.Slope1)
	if err != nil {
		return 0, err
	}
	return safemath.Add(rate, slope)
}

// SupplyRate returns borrow * util * (1 - fee), the rate earned by
// suppliers after the backstop's share.
func SupplyRate(borrowRate, util, fee uint64) (uint64, error) {
	if fee > safemath.Scale7 {
		return 0, fmt.Errorf("%w: fee %d", ErrInvalidReserveConfig, fee)
	}
	util = min(util, safemath.Scale7)
	gross, err := safemath.MulFloor(borrowRate, util, safemath.Scale7)
	if err != nil {
		return 0, err
	}
	return safemath.MulFloor(gross, safemath.Scale7-fee, safemath.Scale7)
}
