// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"fmt"

	safemath "github.com/luxfi/lendvm/utils/math"
)

// Schedule is the price decay of an auction, snapshotted at creation.
// Discounts carry 7 decimals; durations are seconds.
type Schedule struct {
	MinDiscount   uint64 `serialize:"true" json:"minDiscount"`
	MaxDiscount   uint64 `serialize:"true" json:"maxDiscount"`
	DecayDuration uint64 `serialize:"true" json:"decayDuration"`
	Window        uint64 `serialize:"true" json:"window"`
}

// DefaultSchedule decays from a 1% to a 10% discount over the first half of
// a one hour window.
func DefaultSchedule() Schedule {
	return Schedule{
		MinDiscount:   100_000,
		MaxDiscount:   1_000_000,
		DecayDuration: 1_800,
		Window:        3_600,
	}
}

// Verify checks that the discount strictly grows within a positive window.
func (s Schedule) Verify() error {
	switch {
	case s.Window == 0:
		return fmt.Errorf("%w: zero window", ErrInvalidSchedule)
	case s.DecayDuration == 0 || s.DecayDuration > s.Window:
		return fmt.Errorf("%w: decay %d outside (0, %d]", ErrInvalidSchedule, s.DecayDuration, s.Window)
	case s.MinDiscount >= s.MaxDiscount:
		return fmt.Errorf("%w: min discount %d not below max %d", ErrInvalidSchedule, s.MinDiscount, s.MaxDiscount)
	case s.MaxDiscount >= safemath.Scale7:
		return fmt.Errorf("%w: max discount %d", ErrInvalidSchedule, s.MaxDiscount)
	}
	return nil
}

// Discount rises linearly from MinDiscount at creation to MaxDiscount after
// DecayDuration and stays there.
func (s Schedule) Discount(elapsed uint64) (uint64, error) {
	if s.DecayDuration == 0 || elapsed >= s.DecayDuration || s.MaxDiscount <= s.MinDiscount {
		return max(s.MaxDiscount, s.MinDiscount), nil
	}
	step, err := safemath.MulDivFloor(s.MaxDiscount-s.MinDiscount, elapsed, s.DecayDuration)
	if err != nil {
		return 0, err
	}
	return safemath.Add(s.MinDiscount, step)
}

// LotModifier is (1+discount)/(1+MaxDiscount): the fraction of the offered
// basket, which is sized at the ceiling discount, a filler receives.
func (s Schedule) LotModifier(elapsed uint64) (uint64, error) {
	discount, err := s.Discount(elapsed)
	if err != nil {
		return 0, err
	}
	return safemath.DivFloor(
		safemath.Scale7+discount,
		safemath.Scale7+s.MaxDiscount,
		safemath.Scale7,
	)
}
