// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package positions

import (
	"fmt"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

// Change reports the effect of an action on one reserve.
type Change struct {
	// Amount is the underlying moved.
	Amount uint64
	// Shares is the number of shares minted or burned.
	Shares uint64
	// Balance is the user's resulting share balance in the reserve.
	Balance uint64
}

// Deposit credits amount of underlying as collateral. Shares are rounded
// down.
func Deposit(r *reserve.Reserve, p *Positions, amount uint64) (Change, error) {
	if amount == 0 {
		return Change{}, ErrInvalidAmount
	}
	shares, err := r.ToBSharesFloor(amount)
	if err != nil {
		return Change{}, err
	}
	if shares == 0 {
		return Change{}, ErrInvalidAmount
	}
	bSupply, err := safemath.Add(r.BSupply, shares)
	if err != nil {
		return Change{}, err
	}
	if err := p.addCollateral(r.Index, shares); err != nil {
		return Change{}, err
	}
	r.BSupply = bSupply
	return Change{
		Amount:  amount,
		Shares:  shares,
		Balance: p.Collateral[r.Index],
	}, nil
}

// Withdraw removes amount of underlying from the user's collateral. Shares
// burned are rounded up. Requests above the balance withdraw the whole
// balance.
func Withdraw(r *reserve.Reserve, p *Positions, amount uint64) (Change, error) {
	if amount == 0 {
		return Change{}, ErrInvalidAmount
	}
	shares, err := r.ToBSharesCeil(amount)
	if err != nil {
		return Change{}, err
	}
	balance := p.Collateral[r.Index]
	if shares >= balance {
		if balance == 0 {
			return Change{}, ErrInsufficientShares
		}
		shares = balance
		if amount, err = reserve.ToAmountFloor(balance, r.BRate); err != nil {
			return Change{}, err
		}
	}
	if err := burnSupply(r, p, shares); err != nil {
		return Change{}, err
	}
	return Change{
		Amount:  amount,
		Shares:  shares,
		Balance: p.Collateral[r.Index],
	}, nil
}

// Borrow adds amount of underlying as debt. Debt shares are rounded up.
func Borrow(r *reserve.Reserve, p *Positions, amount uint64) (Change, error) {
	if amount == 0 {
		return Change{}, ErrInvalidAmount
	}
	shares, err := r.ToDSharesCeil(amount)
	if err != nil {
		return Change{}, err
	}
	dSupply, err := safemath.Add(r.DSupply, shares)
	if err != nil {
		return Change{}, err
	}
	if err := p.addLiability(r.Index, shares); err != nil {
		return Change{}, err
	}
	r.DSupply = dSupply
	return Change{
		Amount:  amount,
		Shares:  shares,
		Balance: p.Liabilities[r.Index],
	}, nil
}

// Repay pays down amount of underlying of the user's debt. Debt shares
// burned are rounded down. Paying more than is owed clears the debt and
// returns the excess as refund.
func Repay(r *reserve.Reserve, p *Positions, amount uint64) (Change, uint64, error) {
	if amount == 0 {
		return Change{}, 0, ErrInvalidAmount
	}
	shares, err := r.ToDSharesFloor(amount)
	if err != nil {
		return Change{}, 0, err
	}
	balance := p.Liabilities[r.Index]
	var refund uint64
	if shares >= balance {
		if balance == 0 {
			return Change{}, 0, ErrInsufficientShares
		}
		owed, err := reserve.ToAmountCeil(balance, r.DRate)
		if err != nil {
			return Change{}, 0, err
		}
		shares = balance
		refund = safemath.SaturatingSub(amount, owed)
		amount -= refund
	}
	if shares == 0 {
		return Change{}, 0, ErrInvalidAmount
	}
	if err := burnDebt(r, p, shares); err != nil {
		return Change{}, 0, err
	}
	return Change{
		Amount:  amount,
		Shares:  shares,
		Balance: p.Liabilities[r.Index],
	}, refund, nil
}

// RepayShares burns shares of the user's debt and reports the underlying
// that covers them, rounded up. Burning more than the user owes fails with
// ErrInsufficientShares.
func RepayShares(r *reserve.Reserve, p *Positions, shares uint64) (Change, error) {
	balance := p.Liabilities[r.Index]
	if shares > balance {
		return Change{}, fmt.Errorf("%w: reserve %d owes %d, need %d", ErrInsufficientShares, r.Index, balance, shares)
	}
	if shares == 0 {
		return Change{Balance: balance}, nil
	}
	amount, err := reserve.ToAmountCeil(shares, r.DRate)
	if err != nil {
		return Change{}, err
	}
	if err := burnDebt(r, p, shares); err != nil {
		return Change{}, err
	}
	return Change{
		Amount:  amount,
		Shares:  shares,
		Balance: p.Liabilities[r.Index],
	}, nil
}

// MoveCollateral transfers supply shares between users. Reserve totals do
// not change. Moving more than the sender holds fails with
// ErrInsufficientShares.
func MoveCollateral(r *reserve.Reserve, from, to *Positions, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, nil
	}
	if err := from.removeCollateral(r.Index, shares); err != nil {
		return 0, err
	}
	if err := to.addCollateral(r.Index, shares); err != nil {
		return 0, err
	}
	return shares, nil
}

func burnSupply(r *reserve.Reserve, p *Positions, shares uint64) error {
	bSupply, err := safemath.Sub(r.BSupply, shares)
	if err != nil {
		return err
	}
	if err := p.removeCollateral(r.Index, shares); err != nil {
		return err
	}
	r.BSupply = bSupply
	return nil
}

func burnDebt(r *reserve.Reserve, p *Positions, shares uint64) error {
	dSupply, err := safemath.Sub(r.DSupply, shares)
	if err != nil {
		return err
	}
	if err := p.removeLiability(r.Index, shares); err != nil {
		return err
	}
	r.DSupply = dSupply
	return nil
}
