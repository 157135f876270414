// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
)

func healthAccount(collateralRaw, collateral, liabilityRaw, liability uint64) health.Account {
	return health.Account{
		CollateralRaw: collateralRaw,
		Collateral:    collateral,
		LiabilityRaw:  liabilityRaw,
		Liability:     liability,
	}
}

func TestLiquidationBaskets(t *testing.T) {
	require := require.New(t)

	p := positions.New()
	p.Collateral[0] = 1_000
	p.Collateral[1] = 7
	p.Liabilities[2] = 333

	acc := health.Account{
		CollateralAssets: []health.AssetValue{
			{Asset: collateralAsset, Index: 0},
			{Asset: ids.GenerateTestID(), Index: 1},
		},
		LiabilityAssets: []health.AssetValue{{Asset: debtAsset, Index: 2}},
	}

	offered, requested, err := LiquidationBaskets(p, acc, Size{CollateralPct: 10 * pct, DebtPct: 50 * pct})
	require.NoError(err)
	// 10% of 7 shares rounds to nothing and is dropped
	require.Equal([]Entry{{Asset: collateralAsset, Amount: 100}}, offered)
	require.Equal([]Entry{{Asset: debtAsset, Amount: 167}}, requested)

	offered, requested, err = LiquidationBaskets(p, acc, Size{CollateralPct: safemath.Scale7, DebtPct: safemath.Scale7})
	require.NoError(err)
	require.Len(offered, 2)
	require.Equal(uint64(333), requested[0].Amount)

	_, _, err = LiquidationBaskets(positions.New(), acc, Size{CollateralPct: safemath.Scale7, DebtPct: safemath.Scale7})
	require.ErrorIs(err, ErrEmptyBasket)
}
