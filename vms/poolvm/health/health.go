// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package health values a user's positions at oracle prices and classifies
// the account as healthy, liquidatable or bad debt.
package health

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/oracle"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

// DefaultMinHealth is a health ratio of exactly 1.0.
const DefaultMinHealth = safemath.Scale7

var (
	ErrUnknownReserve      = errors.New("unknown reserve")
	ErrUnderCollateralized = errors.New("health ratio below minimum")
)

// Class is the solvency classification of an account.
type Class uint8

const (
	Healthy Class = iota
	Liquidatable
	BadDebt
)

func (c Class) String() string {
	switch c {
	case Healthy:
		return "healthy"
	case Liquidatable:
		return "liquidatable"
	case BadDebt:
		return "bad_debt"
	default:
		return "unknown"
	}
}

// Reserves maps reserve index to a loaded reserve.
type Reserves map[uint32]*reserve.Reserve

// AssetValue is the valuation of one reserve position.
type AssetValue struct {
	Asset     ids.ID
	Index     uint32
	Amount    uint64
	Raw       uint64
	Effective uint64
}

// Account is the valuation of a user's positions in the oracle's base unit
// (7 decimals). Raw values are unweighted; effective values apply the
// collateral and liability factors.
type Account struct {
	CollateralRaw uint64
	Collateral    uint64
	LiabilityRaw  uint64
	Liability     uint64

	CollateralAssets []AssetValue
	LiabilityAssets  []AssetValue
}

// Ratio is effective collateral over effective liability with 7 decimals.
// An account without liabilities has the maximum ratio.
func (a Account) Ratio() uint64 {
	if a.Liability == 0 {
		return math.MaxUint64
	}
	ratio, err := safemath.DivFloor(a.Collateral, a.Liability, safemath.Scale7)
	if err != nil {
		return math.MaxUint64
	}
	return ratio
}

// Classify places the account relative to minHealth. Bad debt means the
// account owes something and has no collateral left to liquidate.
func (a Account) Classify(minHealth uint64) Class {
	switch {
	case a.Liability == 0 || a.Ratio() >= minHealth:
		return Healthy
	case a.Collateral > 0:
		return Liquidatable
	default:
		return BadDebt
	}
}

// RequireHealthy fails with ErrUnderCollateralized when the account is below
// minHealth.
func (a Account) RequireHealthy(minHealth uint64) error {
	if a.Liability == 0 {
		return nil
	}
	if ratio := a.Ratio(); ratio < minHealth {
		return fmt.Errorf("%w: %d < %d", ErrUnderCollateralized, ratio, minHealth)
	}
	return nil
}

// Evaluator prices positions. Prices older than MaxPriceAge seconds are
// rejected rather than used.
type Evaluator struct {
	Oracle      oracle.Oracle
	MaxPriceAge uint64
}

// Evaluate values p at now. Collateral rounds down and liabilities round
// up. Any missing or stale price of a held asset fails the evaluation.
func (e Evaluator) Evaluate(p *positions.Positions, reserves Reserves, now uint64) (Account, error) {
	var acc Account
	for _, index := range p.Indices() {
		r, ok := reserves[index]
		if !ok {
			return Account{}, fmt.Errorf("%w: index %d", ErrUnknownReserve, index)
		}
		price, err := oracle.Fresh(e.Oracle, r.Asset, now, e.MaxPriceAge)
		if err != nil {
			return Account{}, err
		}

		if shares := p.Collateral[index]; shares > 0 {
			v, err := collateralValue(r, shares, price.Value)
			if err != nil {
				return Account{}, err
			}
			if acc.CollateralRaw, err = safemath.Add(acc.CollateralRaw, v.Raw); err != nil {
				return Account{}, err
			}
			if acc.Collateral, err = safemath.Add(acc.Collateral, v.Effective); err != nil {
				return Account{}, err
			}
			acc.CollateralAssets = append(acc.CollateralAssets, v)
		}
		if shares := p.Liabilities[index]; shares > 0 {
			v, err := liabilityValue(r, shares, price.Value)
			if err != nil {
				return Account{}, err
			}
			if acc.LiabilityRaw, err = safemath.Add(acc.LiabilityRaw, v.Raw); err != nil {
				return Account{}, err
			}
			if acc.Liability, err = safemath.Add(acc.Liability, v.Effective); err != nil {
				return Account{}, err
			}
			acc.LiabilityAssets = append(acc.LiabilityAssets, v)
		}
	}
	return acc, nil
}

func collateralValue(r *reserve.Reserve, shares, price uint64) (AssetValue, error) {
	amount, err := reserve.ToAmountFloor(shares, r.BRate)
	if err != nil {
		return AssetValue{}, err
	}
	raw, err := r.Value(amount, price, false)
	if err != nil {
		return AssetValue{}, err
	}
	effective, err := safemath.MulFloor(raw, r.CollateralFactor, safemath.Scale7)
	if err != nil {
		return AssetValue{}, err
	}
	return AssetValue{Asset: r.Asset, Index: r.Index, Amount: amount, Raw: raw, Effective: effective}, nil
}

func liabilityValue(r *reserve.Reserve, shares, price uint64) (AssetValue, error) {
	amount, err := reserve.ToAmountCeil(shares, r.DRate)
	if err != nil {
		return AssetValue{}, err
	}
	raw, err := r.Value(amount, price, true)
	if err != nil {
		return AssetValue{}, err
	}
	// LiabilityFactor is in (0, 1], so dividing inflates the liability.
	effective, err := safemath.DivCeil(raw, r.LiabilityFactor, safemath.Scale7)
	if err != nil {
		return AssetValue{}, err
	}
	return AssetValue{Asset: r.Asset, Index: r.Index, Amount: amount, Raw: raw, Effective: effective}, nil
}
