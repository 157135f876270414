// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reserve implements per-asset reserve accounting: share indices,
// interest accrual and the interest rate model.
package reserve

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
)

// MaxDecimals bounds the token decimals a reserve may declare.
const MaxDecimals = 18

var (
	ErrInvalidReserveConfig  = errors.New("invalid reserve config")
	ErrInvalidRateCurve      = errors.New("invalid rate curve")
	ErrReserveDisabled       = errors.New("reserve disabled")
	ErrUtilizationTooHigh    = errors.New("utilization above maximum")
	ErrCollateralCapExceeded = errors.New("collateral cap exceeded")
)

// Config holds the immutable risk parameters of a reserve. Factors carry 7
// decimals.
type Config struct {
	Index            uint32 `serialize:"true" json:"index"`
	Decimals         uint32 `serialize:"true" json:"decimals"`
	CollateralFactor uint64 `serialize:"true" json:"collateralFactor"`
	LiabilityFactor  uint64 `serialize:"true" json:"liabilityFactor"`
	MaxUtil          uint64 `serialize:"true" json:"maxUtil"`
	ReserveFee       uint64 `serialize:"true" json:"reserveFee"`
	// CollateralCap limits total supply in underlying units. Zero means no
	// cap.
	CollateralCap uint64    `serialize:"true" json:"collateralCap"`
	Enabled       bool      `serialize:"true" json:"enabled"`
	Curve         RateCurve `serialize:"true" json:"curve"`
}

// Verify checks the config bounds. Collateral and liability factors and the
// utilization ceiling must lie in (0, 1].
func (c Config) Verify() error {
	switch {
	case c.Decimals > MaxDecimals:
		return fmt.Errorf("%w: decimals %d", ErrInvalidReserveConfig, c.Decimals)
	case c.CollateralFactor == 0 || c.CollateralFactor > safemath.Scale7:
		return fmt.Errorf("%w: collateral factor %d", ErrInvalidReserveConfig, c.CollateralFactor)
	case c.LiabilityFactor == 0 || c.LiabilityFactor > safemath.Scale7:
		return fmt.Errorf("%w: liability factor %d", ErrInvalidReserveConfig, c.LiabilityFactor)
	case c.MaxUtil == 0 || c.MaxUtil > safemath.Scale7:
		return fmt.Errorf("%w: max utilization %d", ErrInvalidReserveConfig, c.MaxUtil)
	case c.ReserveFee > safemath.Scale7:
		return fmt.Errorf("%w: reserve fee %d", ErrInvalidReserveConfig, c.ReserveFee)
	}
	return c.Curve.Verify()
}

// Scalar returns 10^Decimals, the number of base units in one token.
func (c Config) Scalar() uint64 {
	scalar := uint64(1)
	for range c.Decimals {
		scalar *= 10
	}
	return scalar
}

// Data is the mutable state of a reserve.
type Data struct {
	// BRate converts supply shares to underlying (12 decimals).
	BRate uint64 `serialize:"true" json:"bRate"`
	// DRate converts debt shares to underlying (12 decimals).
	DRate   uint64 `serialize:"true" json:"dRate"`
	BSupply uint64 `serialize:"true" json:"bSupply"`
	DSupply uint64 `serialize:"true" json:"dSupply"`
	// BackstopCredit is underlying owed to the backstop from accrued
	// interest.
	BackstopCredit uint64 `serialize:"true" json:"backstopCredit"`
	LastTime       uint64 `serialize:"true" json:"lastTime"`
}

// NewData returns the state of a freshly listed reserve.
func NewData(now uint64) Data {
	return Data{
		BRate:    safemath.Scale12,
		DRate:    safemath.Scale12,
		LastTime: now,
	}
}

// Reserve is a loaded reserve. It is a value snapshot; callers store it
// back after mutating.
type Reserve struct {
	Asset ids.ID `json:"asset"`
	Config
	Data
}

// TotalSupply is the underlying owed to suppliers, rounded down.
func (r *Reserve) TotalSupply() (uint64, error) {
	return ToAmountFloor(r.BSupply, r.BRate)
}

// TotalLiabilities is the underlying owed by borrowers, rounded up.
func (r *Reserve) TotalLiabilities() (uint64, error) {
	return ToAmountCeil(r.DSupply, r.DRate)
}

// Utilization is liabilities over supply with 7 decimals, rounded up. An
// empty reserve has zero utilization.
func (r *Reserve) Utilization() (uint64, error) {
	supply, err := r.TotalSupply()
	if err != nil {
		return 0, err
	}
	if supply == 0 {
		return 0, nil
	}
	liabilities, err := r.TotalLiabilities()
	if err != nil {
		return 0, err
	}
	return safemath.DivCeil(liabilities, supply, safemath.Scale7)
}

// RequireUtilizationBelowMax fails if utilization exceeds MaxUtil.
func (r *Reserve) RequireUtilizationBelowMax() error {
	util, err := r.Utilization()
	if err != nil {
		return err
	}
	if util > r.MaxUtil {
		return fmt.Errorf("%w: %d > %d", ErrUtilizationTooHigh, util, r.MaxUtil)
	}
	return nil
}

// RequireBelowCollateralCap fails if total supply exceeds the cap.
func (r *Reserve) RequireBelowCollateralCap() error {
	if r.CollateralCap == 0 {
		return nil
	}
	supply, err := r.TotalSupply()
	if err != nil {
		return err
	}
	if supply > r.CollateralCap {
		return fmt.Errorf("%w: %d > %d", ErrCollateralCapExceeded, supply, r.CollateralCap)
	}
	return nil
}

// Rates returns the current annual borrow and supply rates.
func (r *Reserve) Rates() (borrow uint64, supply uint64, err error) {
	util, err := r.Utilization()
	if err != nil {
		return 0, 0, err
	}
	borrow, err = r.Curve.BorrowRate(util)
	if err != nil {
		return 0, 0, err
	}
	supply, err = SupplyRate(borrow, util, r.ReserveFee)
	return borrow, supply, err
}

// Value returns amount priced at price (7 decimals) in the oracle's base
// unit, rounding up when roundUp is set.
func (r *Reserve) Value(amount, price uint64, roundUp bool) (uint64, error) {
	if roundUp {
		return safemath.MulDivCeil(amount, price, r.Scalar())
	}
	return safemath.MulDivFloor(amount, price, r.Scalar())
}

// ToBSharesFloor converts an underlying amount to supply shares, rounding
// down.
func (r *Reserve) ToBSharesFloor(amount uint64) (uint64, error) {
	return ToSharesFloor(amount, r.BRate)
}

// ToBSharesCeil converts an underlying amount to supply shares, rounding up.
func (r *Reserve) ToBSharesCeil(amount uint64) (uint64, error) {
	return ToSharesCeil(amount, r.BRate)
}

// ToDSharesFloor converts an underlying amount to debt shares, rounding
// down.
func (r *Reserve) ToDSharesFloor(amount uint64) (uint64, error) {
	return ToSharesFloor(amount, r.DRate)
}

// ToDSharesCeil converts an underlying amount to debt shares, rounding up.
func (r *Reserve) ToDSharesCeil(amount uint64) (uint64, error) {
	return ToSharesCeil(amount, r.DRate)
}

// ToSharesFloor converts underlying to shares at index, rounding down.
func ToSharesFloor(amount, index uint64) (uint64, error) {
	return safemath.DivFloor(amount, index, safemath.Scale12)
}

// ToSharesCeil converts underlying to shares at index, rounding up.
func ToSharesCeil(amount, index uint64) (uint64, error) {
	return safemath.DivCeil(amount, index, safemath.Scale12)
}

// ToAmountFloor converts shares to underlying at index, rounding down.
func ToAmountFloor(shares, index uint64) (uint64, error) {
	return safemath.MulFloor(shares, index, safemath.Scale12)
}

// ToAmountCeil converts shares to underlying at index, rounding up.
func ToAmountCeil(shares, index uint64) (uint64, error) {
	return safemath.MulCeil(shares, index, safemath.Scale12)
}
