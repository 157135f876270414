// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

// MaxReserves bounds the number of reserves a pool may list.
const MaxReserves = 64

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidPool   = errors.New("invalid pool")
)

// Reserve lists one asset in the pool.
type Reserve struct {
	Asset  ids.ID         `serialize:"true" json:"asset"`
	Config reserve.Config `serialize:"true" json:"config"`
}

// Pool is the immutable configuration a pool is created with. It is the
// genesis of the chain.
type Pool struct {
	Name string `serialize:"true" json:"name"`
	// Oracle is the address allowed to publish prices.
	Oracle ids.ShortID `serialize:"true" json:"oracle"`
	// Admin is the address allowed to change the pool status.
	Admin ids.ShortID `serialize:"true" json:"admin"`
	// BackstopToken is the asset the backstop fund is denominated in.
	BackstopToken ids.ID `serialize:"true" json:"backstopToken"`

	MaxPositions uint32 `serialize:"true" json:"maxPositions"`
	// MinHealthFactor is the lowest collateral to liability ratio an
	// action may leave an account at, with 7 decimals.
	MinHealthFactor uint64 `serialize:"true" json:"minHealthFactor"`
	// MaxPriceAge is the oldest price, in seconds, health checks accept.
	// Zero disables the check.
	MaxPriceAge uint64 `serialize:"true" json:"maxPriceAge"`
	// MaxAccrualStep splits long accrual periods into compounding steps.
	// Zero accrues in a single step.
	MaxAccrualStep uint64 `serialize:"true" json:"maxAccrualStep"`
	// PriceWindow smooths published prices over a time-weighted window.
	// Zero uses the latest price.
	PriceWindow uint64 `serialize:"true" json:"priceWindow"`

	Window        uint64 `serialize:"true" json:"window"`
	DecayDuration uint64 `serialize:"true" json:"decayDuration"`
	MinDiscount   uint64 `serialize:"true" json:"minDiscount"`
	MaxDiscount   uint64 `serialize:"true" json:"maxDiscount"`
	// TargetHealth is the health a liquidation auction restores.
	TargetHealth uint64 `serialize:"true" json:"targetHealth"`

	Reserves []Reserve `serialize:"true" json:"reserves"`

	// Timestamp is the genesis time, in unix seconds, reserves accrue from.
	Timestamp uint64 `serialize:"true" json:"timestamp"`
}

// DefaultPool returns a pool with default risk parameters and no reserves.
func DefaultPool() Pool {
	schedule := auction.DefaultSchedule()
	return Pool{
		Name:            "pool",
		MaxPositions:    8,
		MinHealthFactor: health.DefaultMinHealth,
		MaxPriceAge:     3_600,
		MaxAccrualStep:  86_400,
		Window:          schedule.Window,
		DecayDuration:   schedule.DecayDuration,
		MinDiscount:     schedule.MinDiscount,
		MaxDiscount:     schedule.MaxDiscount,
		TargetHealth:    auction.DefaultTargetHealth,
	}
}

// ParsePool decodes and validates a JSON pool bundle.
func ParsePool(b []byte) (Pool, error) {
	var p Pool
	if err := json.Unmarshal(b, &p); err != nil {
		return Pool{}, fmt.Errorf("%w: %w", ErrInvalidPool, err)
	}
	if err := p.Validate(); err != nil {
		return Pool{}, err
	}
	return p, nil
}

// Schedule returns the decay schedule new auctions snapshot.
func (p Pool) Schedule() auction.Schedule {
	return auction.Schedule{
		MinDiscount:   p.MinDiscount,
		MaxDiscount:   p.MaxDiscount,
		DecayDuration: p.DecayDuration,
		Window:        p.Window,
	}
}

// Sizer returns the policy used to size liquidation auctions.
func (p Pool) Sizer() auction.Sizer {
	return auction.TargetHealthSizer{TargetHealth: p.TargetHealth}
}

// Validate rejects bundles a pool cannot safely run with. Reserve indices
// must match their position in Reserves.
func (p Pool) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidPool)
	case p.BackstopToken == ids.Empty:
		return fmt.Errorf("%w: empty backstop token", ErrInvalidPool)
	case p.MaxPositions == 0:
		return fmt.Errorf("%w: max positions must be positive", ErrInvalidPool)
	case p.MinHealthFactor < safemath.Scale7:
		return fmt.Errorf("%w: min health factor %d below 1.0", ErrInvalidPool, p.MinHealthFactor)
	case p.TargetHealth < p.MinHealthFactor:
		return fmt.Errorf("%w: target health %d below min health factor %d",
			ErrInvalidPool, p.TargetHealth, p.MinHealthFactor)
	case len(p.Reserves) == 0:
		return fmt.Errorf("%w: no reserves", ErrInvalidPool)
	case len(p.Reserves) > MaxReserves:
		return fmt.Errorf("%w: %d reserves exceeds %d", ErrInvalidPool, len(p.Reserves), MaxReserves)
	}
	if err := p.Schedule().Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPool, err)
	}

	seen := make(map[ids.ID]struct{}, len(p.Reserves))
	for i, r := range p.Reserves {
		if _, ok := seen[r.Asset]; ok {
			return fmt.Errorf("%w: duplicate reserve %s", ErrInvalidPool, r.Asset)
		}
		seen[r.Asset] = struct{}{}

		if r.Config.Index != uint32(i) {
			return fmt.Errorf("%w: reserve %s has index %d at position %d",
				ErrInvalidPool, r.Asset, r.Config.Index, i)
		}
		if err := r.Config.Verify(); err != nil {
			return fmt.Errorf("%w: reserve %s: %w", ErrInvalidPool, r.Asset, err)
		}
	}
	return nil
}
