// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	safemath "github.com/luxfi/lendvm/utils/math"
)

// indexPerRateUnit converts a 7 decimal rate into 12 decimal index units.
const indexPerRateUnit = safemath.Scale12 / safemath.Scale7

// Accrual summarizes one call to Accrue.
type Accrual struct {
	Elapsed uint64
	// Interest is the growth in total liabilities.
	Interest uint64
	// Credit is the part of Interest set aside for the backstop.
	Credit uint64
}

// Accrue advances the reserve to now. Interest compounds in steps of at
// most maxStep seconds; a zero maxStep accrues the whole interval in one
// step. Calling Accrue twice with the same now is a no-op, and neither index
// ever decreases.
func (r *Reserve) Accrue(now, maxStep uint64) (Accrual, error) {
	var acc Accrual
	if now <= r.LastTime {
		return acc, nil
	}
	acc.Elapsed = now - r.LastTime

	for r.LastTime < now {
		dt := now - r.LastTime
		if maxStep > 0 {
			dt = min(dt, maxStep)
		}
		interest, credit, err := r.accrueStep(dt)
		if err != nil {
			return Accrual{}, err
		}
		r.LastTime += dt
		if interest == 0 && (r.DSupply == 0 || r.BSupply == 0) {
			// later steps cannot accrue either
			r.LastTime = now
		}
		if acc.Interest, err = safemath.Add(acc.Interest, interest); err != nil {
			return Accrual{}, err
		}
		if acc.Credit, err = safemath.Add(acc.Credit, credit); err != nil {
			return Accrual{}, err
		}
	}
	return acc, nil
}

// accrueStep applies dt seconds of interest at the current utilization.
func (r *Reserve) accrueStep(dt uint64) (uint64, uint64, error) {
	if r.BSupply == 0 {
		return 0, 0, nil
	}
	util, err := r.Utilization()
	if err != nil || util == 0 {
		return 0, 0, err
	}
	rate, err := r.Curve.BorrowRate(util)
	if err != nil {
		return 0, 0, err
	}

	// DRate *= 1 + rate * dt / year
	growth, err := safemath.MulDivCeil(rate, dt*indexPerRateUnit, SecondsPerYear)
	if err != nil {
		return 0, 0, err
	}
	factor, err := safemath.Add(safemath.Scale12, growth)
	if err != nil {
		return 0, 0, err
	}
	before, err := r.TotalLiabilities()
	if err != nil {
		return 0, 0, err
	}
	dRate, err := safemath.MulCeil(r.DRate, factor, safemath.Scale12)
	if err != nil {
		return 0, 0, err
	}
	r.DRate = max(r.DRate, dRate)
	after, err := r.TotalLiabilities()
	if err != nil {
		return 0, 0, err
	}
	interest := safemath.SaturatingSub(after, before)
	credit, err := r.gulp(interest)
	return interest, credit, err
}

// gulp distributes accrued interest: the ReserveFee share becomes backstop
// credit and the rest raises the supply index.
func (r *Reserve) gulp(interest uint64) (uint64, error) {
	if interest == 0 {
		return 0, nil
	}
	supply, err := r.TotalSupply()
	if err != nil {
		return 0, err
	}
	credit, err := safemath.MulFloor(interest, r.ReserveFee, safemath.Scale7)
	if err != nil {
		return 0, err
	}
	if r.BackstopCredit, err = safemath.Add(r.BackstopCredit, credit); err != nil {
		return 0, err
	}
	grown, err := safemath.Add(supply, interest-credit)
	if err != nil {
		return 0, err
	}
	bRate, err := safemath.DivFloor(grown, r.BSupply, safemath.Scale12)
	if err != nil {
		return 0, err
	}
	r.BRate = max(r.BRate, bRate)
	return credit, nil
}
