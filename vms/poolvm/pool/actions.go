// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

// Supply deposits amount of asset as the user's collateral.
func (p *Pool) Supply(user ids.ShortID, asset ids.ID, amount, now uint64) (positions.Change, error) {
	status, err := p.state.GetStatus()
	if err != nil {
		return positions.Change{}, err
	}
	if status == state.Frozen {
		return positions.Change{}, ErrPoolFrozen
	}

	b := p.newBatch(now)
	r, err := b.reserve(asset)
	if err != nil {
		return positions.Change{}, err
	}
	if !r.Enabled {
		return positions.Change{}, fmt.Errorf("%w: %s", reserve.ErrReserveDisabled, asset)
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return positions.Change{}, err
	}
	change, err := positions.Deposit(r, pos, amount)
	if err != nil {
		return positions.Change{}, err
	}
	if err := r.RequireBelowCollateralCap(); err != nil {
		return positions.Change{}, err
	}
	if err := p.requirePositionLimit(pos); err != nil {
		return positions.Change{}, err
	}
	return change, p.commitPosition(b, events.KindSupply, user, asset, pos, change)
}

// Withdraw removes up to amount of asset from the user's collateral. The
// user must stay healthy and the reserve must keep enough supply to cover
// its liabilities.
func (p *Pool) Withdraw(user ids.ShortID, asset ids.ID, amount, now uint64) (positions.Change, error) {
	b := p.newBatch(now)
	r, err := b.reserve(asset)
	if err != nil {
		return positions.Change{}, err
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return positions.Change{}, err
	}
	change, err := positions.Withdraw(r, pos, amount)
	if err != nil {
		return positions.Change{}, err
	}
	if err := requireLiquidity(r); err != nil {
		return positions.Change{}, err
	}
	if err := b.requireHealthy(pos); err != nil {
		return positions.Change{}, err
	}
	return change, p.commitPosition(b, events.KindWithdraw, user, asset, pos, change)
}

// Borrow adds amount of asset to the user's debt. Utilization must stay at
// or below the reserve's ceiling and the user must stay healthy.
func (p *Pool) Borrow(user ids.ShortID, asset ids.ID, amount, now uint64) (positions.Change, error) {
	status, err := p.state.GetStatus()
	if err != nil {
		return positions.Change{}, err
	}
	if status != state.Active {
		return positions.Change{}, fmt.Errorf("%w: pool is %s", ErrBorrowingDisabled, status)
	}

	b := p.newBatch(now)
	r, err := b.reserve(asset)
	if err != nil {
		return positions.Change{}, err
	}
	if !r.Enabled {
		return positions.Change{}, fmt.Errorf("%w: %s", reserve.ErrReserveDisabled, asset)
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return positions.Change{}, err
	}
	change, err := positions.Borrow(r, pos, amount)
	if err != nil {
		return positions.Change{}, err
	}
	if err := r.RequireUtilizationBelowMax(); err != nil {
		return positions.Change{}, err
	}
	if err := p.requirePositionLimit(pos); err != nil {
		return positions.Change{}, err
	}
	if err := b.requireHealthy(pos); err != nil {
		return positions.Change{}, err
	}
	return change, p.commitPosition(b, events.KindBorrow, user, asset, pos, change)
}

// Repay pays down the user's debt in asset. Any amount above the debt is
// returned as refund and not taken from the caller.
func (p *Pool) Repay(user ids.ShortID, asset ids.ID, amount, now uint64) (positions.Change, uint64, error) {
	b := p.newBatch(now)
	r, err := b.reserve(asset)
	if err != nil {
		return positions.Change{}, 0, err
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return positions.Change{}, 0, err
	}
	change, refund, err := positions.Repay(r, pos, amount)
	if err != nil {
		return positions.Change{}, 0, err
	}
	return change, refund, p.commitPosition(b, events.KindRepay, user, asset, pos, change)
}

func (p *Pool) commitPosition(
	b *batch,
	action events.Kind,
	user ids.ShortID,
	asset ids.ID,
	pos *positions.Positions,
	change positions.Change,
) error {
	if err := b.store(); err != nil {
		return err
	}
	if err := p.state.PutPositions(user, pos); err != nil {
		return err
	}
	p.emitter.Emit(&events.Position{
		Action:  action,
		User:    user,
		Asset:   asset,
		Amount:  change.Amount,
		Shares:  change.Shares,
		Balance: change.Balance,
		Time:    b.now,
	})
	p.log.Debug("position changed",
		log.String("action", string(action)),
		log.Stringer("user", user),
		log.Stringer("asset", asset),
		log.Uint64("amount", change.Amount),
		log.Uint64("shares", change.Shares),
	)
	return nil
}

// requireLiquidity fails if the reserve owes more to borrowers than its
// suppliers provide.
func requireLiquidity(r *reserve.Reserve) error {
	supply, err := r.TotalSupply()
	if err != nil {
		return err
	}
	liabilities, err := r.TotalLiabilities()
	if err != nil {
		return err
	}
	if liabilities > supply {
		return fmt.Errorf("%w: %s owes %d against %d supplied",
			ErrInsufficientLiquidity, r.Asset, liabilities, supply)
	}
	return nil
}
