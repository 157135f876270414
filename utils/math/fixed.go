// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import "github.com/holiman/uint256"

const (
	// Scale7 is the denominator of factors, rates, utilization and prices.
	Scale7 uint64 = 10_000_000
	// Scale12 is the denominator of supply and debt indices.
	Scale12 uint64 = 1_000_000_000_000
)

// mulDiv computes x*y/d in 256 bits. The result must fit in 64 bits.
func mulDiv(x, y, d uint64, roundUp bool) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	var (
		bx = uint256.NewInt(x)
		by = uint256.NewInt(y)
		bd = uint256.NewInt(d)
	)
	z, overflow := new(uint256.Int).MulDivOverflow(bx, by, bd)
	if overflow {
		return 0, ErrOverflow
	}
	if roundUp && !new(uint256.Int).MulMod(bx, by, bd).IsZero() {
		z.AddUint64(z, 1)
	}
	if !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// MulDivFloor returns floor(x*y/d).
func MulDivFloor(x, y, d uint64) (uint64, error) {
	return mulDiv(x, y, d, false)
}

// MulDivCeil returns ceil(x*y/d).
func MulDivCeil(x, y, d uint64) (uint64, error) {
	return mulDiv(x, y, d, true)
}

// MulFloor multiplies x by the fixed-point value y with the given scale,
// rounding down.
func MulFloor(x, y, scale uint64) (uint64, error) {
	return mulDiv(x, y, scale, false)
}

// MulCeil multiplies x by the fixed-point value y with the given scale,
// rounding up.
func MulCeil(x, y, scale uint64) (uint64, error) {
	return mulDiv(x, y, scale, true)
}

// DivFloor divides x by the fixed-point value y with the given scale,
// rounding down.
func DivFloor(x, y, scale uint64) (uint64, error) {
	return mulDiv(x, scale, y, false)
}

// DivCeil divides x by the fixed-point value y with the given scale,
// rounding up.
func DivCeil(x, y, scale uint64) (uint64, error) {
	return mulDiv(x, scale, y, true)
}
