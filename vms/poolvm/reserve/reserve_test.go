// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	safemath "github.com/luxfi/lendvm/utils/math"
)

func newTestReserve(supply, borrowed uint64) *Reserve {
	r := &Reserve{
		Asset: ids.GenerateTestID(),
		Config: Config{
			Decimals:         7,
			CollateralFactor: 7_500_000,
			LiabilityFactor:  8_000_000,
			MaxUtil:          9_500_000,
			ReserveFee:       1_000_000,
			Enabled:          true,
			Curve:            DefaultRateCurve(),
		},
		Data: NewData(1_000),
	}
	r.BSupply = supply
	r.DSupply = borrowed
	return r
}

func TestBorrowRateCurve(t *testing.T) {
	curve := DefaultRateCurve()
	tests := []struct {
		name string
		util uint64
		want uint64
	}{
		{"empty", 0, 200_000},
		{"below kink", 6_000_000, 1_325_000},
		{"at kink", 8_000_000, 1_700_000},
		{"above kink", 9_000_000, 4_700_000},
		{"fully borrowed", safemath.Scale7, 7_700_000},
		{"over borrowed clamps", 12_000_000, 7_700_000},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)
			rate, err := curve.BorrowRate(test.util)
			require.NoError(err)
			require.Equal(test.want, rate)
		})
	}

	maxRate, err := curve.MaxRate()
	require.NoError(t, err)
	require.Equal(t, uint64(7_700_000), maxRate)
}

func TestSupplyRate(t *testing.T) {
	require := require.New(t)

	// 0.1325 * 0.6 * (1 - 0.1)
	rate, err := SupplyRate(1_325_000, 6_000_000, 1_000_000)
	require.NoError(err)
	require.Equal(uint64(715_500), rate)

	_, err = SupplyRate(1_325_000, 6_000_000, safemath.Scale7+1)
	require.ErrorIs(err, ErrInvalidReserveConfig)
}

func TestConfigVerify(t *testing.T) {
	valid := newTestReserve(0, 0).Config
	require.NoError(t, valid.Verify())

	tests := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"zero collateral factor", func(c *Config) { c.CollateralFactor = 0 }, ErrInvalidReserveConfig},
		{"collateral factor above one", func(c *Config) { c.CollateralFactor = safemath.Scale7 + 1 }, ErrInvalidReserveConfig},
		{"zero liability factor", func(c *Config) { c.LiabilityFactor = 0 }, ErrInvalidReserveConfig},
		{"zero max util", func(c *Config) { c.MaxUtil = 0 }, ErrInvalidReserveConfig},
		{"fee above one", func(c *Config) { c.ReserveFee = safemath.Scale7 + 1 }, ErrInvalidReserveConfig},
		{"too many decimals", func(c *Config) { c.Decimals = MaxDecimals + 1 }, ErrInvalidReserveConfig},
		{"zero kink", func(c *Config) { c.Curve.Kink = 0 }, ErrInvalidRateCurve},
		{"kink at one", func(c *Config) { c.Curve.Kink = safemath.Scale7 }, ErrInvalidRateCurve},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid
			test.mutate(&cfg)
			require.ErrorIs(t, cfg.Verify(), test.err)
		})
	}
}

func TestShareConversionRounding(t *testing.T) {
	require := require.New(t)

	const index = 1_100_000_000_000 // 1.1

	shares, err := ToSharesFloor(100, index)
	require.NoError(err)
	require.Equal(uint64(90), shares)

	shares, err = ToSharesCeil(100, index)
	require.NoError(err)
	require.Equal(uint64(91), shares)

	amount, err := ToAmountFloor(91, index)
	require.NoError(err)
	require.Equal(uint64(100), amount)

	amount, err = ToAmountCeil(91, index)
	require.NoError(err)
	require.Equal(uint64(101), amount)
}

func TestUtilization(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(0, 0)
	util, err := r.Utilization()
	require.NoError(err)
	require.Zero(util)

	r = newTestReserve(1_000, 600)
	util, err = r.Utilization()
	require.NoError(err)
	require.Equal(uint64(6_000_000), util)
	require.NoError(r.RequireUtilizationBelowMax())

	r.DSupply = 960
	require.ErrorIs(r.RequireUtilizationBelowMax(), ErrUtilizationTooHigh)

	r.DSupply = 1_000
	util, err = r.Utilization()
	require.NoError(err)
	require.Equal(safemath.Scale7, util)
}

func TestRatesUnchangedWithoutActivity(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(1_000, 600)
	borrow, supply, err := r.Rates()
	require.NoError(err)
	require.Equal(uint64(1_325_000), borrow)
	require.Equal(uint64(715_500), supply)

	acc, err := r.Accrue(r.LastTime, 0)
	require.NoError(err)
	require.Zero(acc.Interest)

	again, _, err := r.Rates()
	require.NoError(err)
	require.Equal(borrow, again)
}

func TestAccrueOneYear(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(10_000_000_000, 6_000_000_000)
	start := r.LastTime

	acc, err := r.Accrue(start+SecondsPerYear, 0)
	require.NoError(err)
	require.Equal(SecondsPerYear, acc.Elapsed)
	require.Equal(uint64(795_000_000), acc.Interest)
	require.Equal(uint64(79_500_000), acc.Credit)

	require.Equal(uint64(1_132_500_000_000), r.DRate)
	require.Equal(uint64(1_071_550_000_000), r.BRate)
	require.Equal(uint64(79_500_000), r.BackstopCredit)
	require.Equal(start+SecondsPerYear, r.LastTime)
}

func TestAccrueIdempotent(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(10_000_000_000, 6_000_000_000)
	now := r.LastTime + 3_600

	_, err := r.Accrue(now, 0)
	require.NoError(err)
	snapshot := *r

	acc, err := r.Accrue(now, 0)
	require.NoError(err)
	require.Zero(acc.Interest)
	require.Equal(snapshot, *r)

	// time going backwards is ignored
	_, err = r.Accrue(now-10, 0)
	require.NoError(err)
	require.Equal(snapshot, *r)
}

func TestAccrueIndicesMonotonic(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(10_000_000_000, 8_500_000_000)
	now := r.LastTime
	for i := range 50 {
		bRate, dRate := r.BRate, r.DRate
		now += uint64(i*97 + 1)
		_, err := r.Accrue(now, 600)
		require.NoError(err)
		require.GreaterOrEqual(r.BRate, bRate)
		require.GreaterOrEqual(r.DRate, dRate)
		require.Equal(now, r.LastTime)
	}
}

func TestAccrueSteppedCompounds(t *testing.T) {
	require := require.New(t)

	single := newTestReserve(10_000_000_000, 6_000_000_000)
	stepped := newTestReserve(10_000_000_000, 6_000_000_000)
	end := single.LastTime + SecondsPerYear

	_, err := single.Accrue(end, 0)
	require.NoError(err)
	_, err = stepped.Accrue(end, SecondsPerYear/12)
	require.NoError(err)

	require.Equal(end, stepped.LastTime)
	require.Greater(stepped.DRate, single.DRate)
}

func TestAccrueShortCircuits(t *testing.T) {
	require := require.New(t)

	empty := newTestReserve(0, 0)
	_, err := empty.Accrue(empty.LastTime+100, 1)
	require.NoError(err)
	require.Equal(uint64(1_100), empty.LastTime)
	require.Equal(safemath.Scale12, empty.BRate)

	idle := newTestReserve(1_000, 0)
	_, err = idle.Accrue(idle.LastTime+1_000_000, 10)
	require.NoError(err)
	require.Equal(uint64(1_001_000), idle.LastTime)
	require.Equal(safemath.Scale12, idle.DRate)
}

func TestCollateralCap(t *testing.T) {
	require := require.New(t)

	r := newTestReserve(1_000, 0)
	require.NoError(r.RequireBelowCollateralCap())

	r.CollateralCap = 999
	require.ErrorIs(r.RequireBelowCollateralCap(), ErrCollateralCapExceeded)

	r.CollateralCap = 1_000
	require.NoError(r.RequireBelowCollateralCap())
}
