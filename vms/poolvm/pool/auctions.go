// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/oracle"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
)

// NewLiquidationAuction offers part of a liquidatable user's collateral
// for part of their debt, sized so the remaining position returns to the
// target health.
func (p *Pool) NewLiquidationAuction(user ids.ShortID, now uint64) (*auction.Auction, error) {
	key := auction.Key{User: user, Type: auction.UserLiquidation}
	if err := p.supersede(key, now); err != nil {
		return nil, err
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return nil, err
	}
	b := p.newBatch(now)
	acc, err := b.account(pos)
	if err != nil {
		return nil, err
	}
	if class := acc.Classify(p.cfg.MinHealthFactor); class != health.Liquidatable {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotLiquidatable, user, class)
	}

	schedule := p.cfg.Schedule()
	size, err := p.sizer.Size(acc, schedule.MaxDiscount)
	if err != nil {
		return nil, err
	}
	offered, requested, err := auction.LiquidationBaskets(pos, acc, size)
	if err != nil {
		return nil, err
	}
	a := &auction.Auction{
		User:      user,
		Type:      auction.UserLiquidation,
		CreatedAt: now,
		Offered:   offered,
		Requested: requested,
		Schedule:  schedule,
	}
	return a, p.create(b, a)
}

// NewBadDebtAuction hands an insolvent user's remaining debt to the
// backstop. Nothing is offered: filling it has the backstop pay the debt
// off, so the backstop loses exactly the debt it absorbs.
func (p *Pool) NewBadDebtAuction(user ids.ShortID, now uint64) (*auction.Auction, error) {
	key := auction.Key{User: user, Type: auction.BadDebt}
	if err := p.supersede(key, now); err != nil {
		return nil, err
	}
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return nil, err
	}
	b := p.newBatch(now)
	acc, err := b.account(pos)
	if err != nil {
		return nil, err
	}
	if class := acc.Classify(p.cfg.MinHealthFactor); class != health.BadDebt {
		return nil, fmt.Errorf("%w: %s is %s", ErrNoBadDebt, user, class)
	}

	requested := make([]auction.Entry, 0, len(acc.LiabilityAssets))
	for _, v := range acc.LiabilityAssets {
		requested = append(requested, auction.Entry{
			Asset:  v.Asset,
			Amount: pos.Liabilities[v.Index],
		})
	}

	schedule := p.cfg.Schedule()
	a := &auction.Auction{
		User:      user,
		Type:      auction.BadDebt,
		CreatedAt: now,
		Requested: requested,
		Schedule:  schedule,
	}
	return a, p.create(b, a)
}

// NewInterestAuction sells the backstop credit accrued in assets for
// backstop tokens. The requested amount is the credit's value at the
// ceiling discount.
func (p *Pool) NewInterestAuction(assets []ids.ID, now uint64) (*auction.Auction, error) {
	key := auction.Key{User: ids.ShortEmpty, Type: auction.Interest}
	if err := p.supersede(key, now); err != nil {
		return nil, err
	}

	b := p.newBatch(now)
	seen := make(map[ids.ID]struct{}, len(assets))
	var (
		offered []auction.Entry
		value   uint64
	)
	for _, asset := range assets {
		if _, ok := seen[asset]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, asset)
		}
		seen[asset] = struct{}{}

		r, err := b.reserve(asset)
		if err != nil {
			return nil, err
		}
		if r.BackstopCredit == 0 {
			continue
		}
		price, err := oracle.Fresh(p.evaluator.Oracle, asset, now, p.cfg.MaxPriceAge)
		if err != nil {
			return nil, err
		}
		v, err := r.Value(r.BackstopCredit, price.Value, false)
		if err != nil {
			return nil, err
		}
		if value, err = safemath.Add(value, v); err != nil {
			return nil, err
		}
		offered = append(offered, auction.Entry{Asset: asset, Amount: r.BackstopCredit})
	}
	if len(offered) == 0 || value == 0 {
		return nil, ErrNoCredit
	}

	schedule := p.cfg.Schedule()
	tokens, err := p.backstopTokens(value, safemath.Scale7+schedule.MaxDiscount, now)
	if err != nil {
		return nil, err
	}
	a := &auction.Auction{
		User:      ids.ShortEmpty,
		Type:      auction.Interest,
		CreatedAt: now,
		Offered:   offered,
		Requested: []auction.Entry{{Asset: p.cfg.BackstopToken, Amount: tokens}},
		Schedule:  schedule,
	}
	return a, p.create(b, a)
}

// backstopTokens converts value (7 decimals) divided by divisor (7
// decimals) into backstop tokens, which carry 7 decimals. The filler pays
// them, so they round up.
func (p *Pool) backstopTokens(value, divisor, now uint64) (uint64, error) {
	price, err := oracle.Fresh(p.evaluator.Oracle, p.cfg.BackstopToken, now, p.cfg.MaxPriceAge)
	if err != nil {
		return 0, fmt.Errorf("backstop token: %w", err)
	}
	tokens, err := safemath.MulDivCeil(value, safemath.Scale7, price.Value)
	if err != nil {
		return 0, err
	}
	return safemath.MulDivCeil(tokens, safemath.Scale7, divisor)
}

// supersede removes an expired auction for key. A live one blocks a new
// auction.
func (p *Pool) supersede(key auction.Key, now uint64) error {
	existing, err := p.state.GetAuction(key)
	if errors.Is(err, ErrAuctionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.Expired(now) {
		return fmt.Errorf("%w: %s", ErrAuctionExists, key)
	}
	if err := p.state.DeleteAuction(key); err != nil {
		return err
	}
	p.emitter.Emit(&events.AuctionExpired{
		User:      key.User,
		Type:      key.Type,
		CreatedAt: existing.CreatedAt,
		Time:      now,
	})
	return nil
}

func (p *Pool) create(b *batch, a *auction.Auction) error {
	if err := b.store(); err != nil {
		return err
	}
	if err := p.state.PutAuction(a); err != nil {
		return err
	}
	p.emitter.Emit(&events.AuctionCreated{
		User:      a.User,
		Type:      a.Type,
		Offered:   a.Offered,
		Requested: a.Requested,
		Time:      a.CreatedAt,
	})
	p.log.Debug("auction created",
		log.Stringer("user", a.User),
		log.Stringer("type", a.Type),
		log.Int("offered", len(a.Offered)),
		log.Int("requested", len(a.Requested)),
	)
	return nil
}

// DeleteStaleAuction removes an expired auction without creating a new
// one.
func (p *Pool) DeleteStaleAuction(key auction.Key, now uint64) error {
	a, err := p.state.GetAuction(key)
	if err != nil {
		return err
	}
	if !a.Expired(now) {
		return fmt.Errorf("%w: %s ends at %d", ErrAuctionNotExpired, key, a.CreatedAt+a.Schedule.Window)
	}
	if err := p.state.DeleteAuction(key); err != nil {
		return err
	}
	p.emitter.Emit(&events.AuctionDeleted{
		User:      key.User,
		Type:      key.Type,
		CreatedAt: a.CreatedAt,
		Time:      now,
	})
	return nil
}

// FillAuction fills pct (7 decimals) of the initial baskets of the auction
// at key. Expired and missing auctions cannot be filled.
func (p *Pool) FillAuction(filler ids.ShortID, key auction.Key, pct, now uint64) (auction.Fill, error) {
	a, err := p.state.GetAuction(key)
	if err != nil {
		return auction.Fill{}, err
	}
	if a.Expired(now) {
		return auction.Fill{}, fmt.Errorf("%w: %s: %w", ErrAuctionNotFound, key, auction.ErrExpired)
	}
	fill, err := a.Fill(pct, now)
	if err != nil {
		return auction.Fill{}, err
	}

	b := p.newBatch(now)
	var paid []auction.Entry
	switch a.Type {
	case auction.UserLiquidation:
		paid, err = p.fillLiquidation(b, a, filler, fill)
	case auction.BadDebt:
		paid, err = p.fillBadDebt(b, a, fill)
	case auction.Interest:
		paid, err = p.fillInterest(b, fill)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidAuctionType, a.Type)
	}
	if err != nil {
		return auction.Fill{}, err
	}
	if err := b.store(); err != nil {
		return auction.Fill{}, err
	}

	if fill.Done {
		err = p.state.DeleteAuction(key)
	} else {
		err = p.state.PutAuction(a)
	}
	if err != nil {
		return auction.Fill{}, err
	}

	p.emitter.Emit(&events.AuctionFilled{
		User:      a.User,
		Type:      a.Type,
		Filler:    filler,
		Pct:       fill.Pct,
		Discount:  fill.Discount,
		Awarded:   fill.Awarded,
		Paid:      paid,
		Done:      fill.Done,
		CreatedAt: a.CreatedAt,
		Time:      now,
	})
	p.log.Debug("auction filled",
		log.Stringer("user", a.User),
		log.Stringer("type", a.Type),
		log.Stringer("filler", filler),
		log.Uint64("pct", fill.Pct),
		log.Uint64("discount", fill.Discount),
		log.Bool("done", fill.Done),
	)
	return fill, nil
}

// fillLiquidation repays the requested debt shares on the user's behalf and
// moves the awarded collateral shares to the filler.
func (p *Pool) fillLiquidation(b *batch, a *auction.Auction, filler ids.ShortID, fill auction.Fill) ([]auction.Entry, error) {
	if filler == a.User {
		return nil, fmt.Errorf("%w: %s cannot fill its own liquidation", ErrInvalidFiller, filler)
	}
	user, err := p.state.GetPositions(a.User)
	if err != nil {
		return nil, err
	}
	fillerPos, err := p.state.GetPositions(filler)
	if err != nil {
		return nil, err
	}

	paid := make([]auction.Entry, 0, len(fill.Requested))
	for _, e := range fill.Requested {
		r, err := b.reserve(e.Asset)
		if err != nil {
			return nil, err
		}
		change, err := positions.RepayShares(r, user, e.Amount)
		if err != nil {
			return nil, staleAuction(a.Key(), err)
		}
		paid = append(paid, auction.Entry{Asset: e.Asset, Amount: change.Amount})
	}
	for i, e := range fill.Awarded {
		r, err := b.reserve(e.Asset)
		if err != nil {
			return nil, err
		}
		moved, err := positions.MoveCollateral(r, user, fillerPos, e.Amount)
		if err != nil {
			return nil, staleAuction(a.Key(), err)
		}
		fill.Awarded[i].Amount = moved
	}
	if err := p.requirePositionLimit(fillerPos); err != nil {
		return nil, err
	}
	if err := p.state.PutPositions(a.User, user); err != nil {
		return nil, err
	}
	return paid, p.state.PutPositions(filler, fillerPos)
}

// fillBadDebt burns the requested slice of the user's debt and draws the
// underlying that covers it from the backstop. A failed draw rejects the
// fill.
func (p *Pool) fillBadDebt(b *batch, a *auction.Auction, fill auction.Fill) ([]auction.Entry, error) {
	user, err := p.state.GetPositions(a.User)
	if err != nil {
		return nil, err
	}

	paid := make([]auction.Entry, 0, len(fill.Requested))
	for _, e := range fill.Requested {
		r, err := b.reserve(e.Asset)
		if err != nil {
			return nil, err
		}
		change, err := positions.RepayShares(r, user, e.Amount)
		if err != nil {
			return nil, staleAuction(a.Key(), err)
		}
		if change.Amount > 0 {
			if err := p.backstop.Draw(e.Asset, change.Amount); err != nil {
				return nil, fmt.Errorf("failed to cover bad debt in %s: %w", e.Asset, err)
			}
			p.emitter.Emit(&events.BadDebtCovered{
				User:   a.User,
				Asset:  e.Asset,
				Amount: change.Amount,
				Shares: change.Shares,
				Time:   b.now,
			})
		}
		paid = append(paid, auction.Entry{Asset: e.Asset, Amount: change.Amount})
	}
	return paid, p.state.PutPositions(a.User, user)
}

// staleAuction marks a fill that asks for more than the user still holds
// or owes, which happens when the position changed after the auction was
// created.
func staleAuction(key auction.Key, err error) error {
	if errors.Is(err, positions.ErrInsufficientShares) {
		return fmt.Errorf("%w: %s: %w", ErrStaleAuction, key, err)
	}
	return err
}

// fillInterest forwards the filler's backstop tokens as fee revenue and
// releases the awarded credit to the filler.
func (p *Pool) fillInterest(b *batch, fill auction.Fill) ([]auction.Entry, error) {
	for i, e := range fill.Awarded {
		r, err := b.reserve(e.Asset)
		if err != nil {
			return nil, err
		}
		released := min(e.Amount, r.BackstopCredit)
		r.BackstopCredit -= released
		fill.Awarded[i].Amount = released
	}
	for _, e := range fill.Requested {
		if e.Amount == 0 {
			continue
		}
		if err := p.backstop.DepositFee(e.Asset, e.Amount); err != nil {
			return nil, fmt.Errorf("failed to deposit fee: %w", err)
		}
	}
	return fill.Requested, nil
}
