// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"fmt"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
)

// DefaultTargetHealth is the health ratio a liquidation aims to restore.
const DefaultTargetHealth = 11_000_000

// Size is the share of a user's positions a liquidation auction covers,
// with 7 decimals.
type Size struct {
	CollateralPct uint64
	DebtPct       uint64
}

// Sizer decides how much of a liquidatable account goes to auction. The
// offered collateral is valued at the schedule's ceiling discount.
type Sizer interface {
	Size(acc health.Account, maxDiscount uint64) (Size, error)
}

// TargetHealthSizer repays just enough debt for the remaining position to
// reach TargetHealth. When the collateral cannot cover that much debt at
// the ceiling discount, all collateral is offered for the debt it can
// cover.
type TargetHealthSizer struct {
	TargetHealth uint64
}

// Size implements Sizer.
//
// Repaying a fraction p of every liability removes p*L of effective
// liability and seizes raw collateral worth p*Lraw*(1+D), a fraction
// q = p*Lraw*(1+D)/Craw of every collateral position. Solving
// C*(1-q) = T*L*(1-p) for p gives
// p = (T*L - C) / (T*L - C*Lraw*(1+D)/Craw).
func (s TargetHealthSizer) Size(acc health.Account, maxDiscount uint64) (Size, error) {
	if acc.Collateral == 0 || acc.CollateralRaw == 0 || acc.Liability == 0 {
		return Size{}, fmt.Errorf("%w: nothing to liquidate", ErrEmptyBasket)
	}
	debtAtDiscount, err := safemath.MulCeil(acc.LiabilityRaw, safemath.Scale7+maxDiscount, safemath.Scale7)
	if err != nil {
		return Size{}, err
	}
	target, err := safemath.MulCeil(acc.Liability, s.TargetHealth, safemath.Scale7)
	if err != nil {
		return Size{}, err
	}
	seized, err := safemath.MulDivFloor(acc.Collateral, debtAtDiscount, acc.CollateralRaw)
	if err != nil {
		return Size{}, err
	}

	debtPct := safemath.Scale7
	if shortfall := safemath.SaturatingSub(target, acc.Collateral); shortfall > 0 && target > seized {
		if den := target - seized; shortfall < den {
			if debtPct, err = safemath.DivCeil(shortfall, den, safemath.Scale7); err != nil {
				return Size{}, err
			}
		}
	}

	collateralPct, err := safemath.MulDivCeil(debtPct, debtAtDiscount, acc.CollateralRaw)
	if err != nil || collateralPct >= safemath.Scale7 {
		collateralPct = safemath.Scale7
		debtPct, err = safemath.DivFloor(acc.CollateralRaw, debtAtDiscount, safemath.Scale7)
		if err != nil {
			return Size{}, err
		}
		debtPct = max(min(debtPct, safemath.Scale7), 1)
	}
	return Size{CollateralPct: collateralPct, DebtPct: debtPct}, nil
}

// LiquidationBaskets applies size to the user's share balances. Offered
// collateral shares round down and requested debt shares round up.
func LiquidationBaskets(p *positions.Positions, acc health.Account, size Size) ([]Entry, []Entry, error) {
	offered := make([]Entry, 0, len(acc.CollateralAssets))
	for _, v := range acc.CollateralAssets {
		shares, err := safemath.MulFloor(p.Collateral[v.Index], size.CollateralPct, safemath.Scale7)
		if err != nil {
			return nil, nil, err
		}
		if shares > 0 {
			offered = append(offered, Entry{Asset: v.Asset, Amount: shares})
		}
	}
	requested := make([]Entry, 0, len(acc.LiabilityAssets))
	for _, v := range acc.LiabilityAssets {
		balance := p.Liabilities[v.Index]
		shares, err := safemath.MulCeil(balance, size.DebtPct, safemath.Scale7)
		if err != nil {
			return nil, nil, err
		}
		if shares = min(shares, balance); shares > 0 {
			requested = append(requested, Entry{Asset: v.Asset, Amount: shares})
		}
	}
	if len(offered) == 0 || len(requested) == 0 {
		return nil, nil, ErrEmptyBasket
	}
	return offered, requested, nil
}
