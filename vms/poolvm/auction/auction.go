// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auction implements the time-decaying auctions that resolve
// liquidatable positions, bad debt and accrued backstop interest.
package auction

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
)

var (
	ErrInvalidAmount   = errors.New("invalid fill amount")
	ErrExpired         = errors.New("auction expired")
	ErrInvalidSchedule = errors.New("invalid auction schedule")
	ErrEmptyBasket     = errors.New("empty auction basket")
)

// Type is the kind of auction. A user has at most one active auction per
// type.
type Type uint8

const (
	UserLiquidation Type = iota
	BadDebt
	Interest
)

func (t Type) String() string {
	switch t {
	case UserLiquidation:
		return "user_liquidation"
	case BadDebt:
		return "bad_debt"
	case Interest:
		return "interest"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known auction type.
func (t Type) Valid() bool {
	return t <= Interest
}

// Entry is one asset of a basket.
type Entry struct {
	Asset  ids.ID `serialize:"true" json:"asset"`
	Amount uint64 `serialize:"true" json:"amount"`
}

// Auction offers a basket in exchange for a requested basket. Both baskets
// are fixed at creation; fills consume them proportionally.
type Auction struct {
	User      ids.ShortID `serialize:"true" json:"user"`
	Type      Type        `serialize:"true" json:"type"`
	CreatedAt uint64      `serialize:"true" json:"createdAt"`
	Offered   []Entry     `serialize:"true" json:"offered"`
	Requested []Entry     `serialize:"true" json:"requested"`
	// FilledPct is the share of the initial baskets already filled, with 7
	// decimals.
	FilledPct uint64   `serialize:"true" json:"filledPct"`
	Schedule  Schedule `serialize:"true" json:"schedule"`
}

// Key identifies the auction.
func (a *Auction) Key() Key {
	return Key{User: a.User, Type: a.Type}
}

// Elapsed is the time since creation, zero if now precedes it.
func (a *Auction) Elapsed(now uint64) uint64 {
	return safemath.SaturatingSub(now, a.CreatedAt)
}

// Expired reports whether the auction's window has passed. A fill at
// exactly the end of the window is still accepted.
func (a *Auction) Expired(now uint64) bool {
	return a.Elapsed(now) > a.Schedule.Window
}

// Remaining returns the unfilled part of both baskets.
func (a *Auction) Remaining() (offered []Entry, requested []Entry, err error) {
	if offered, err = scale(a.Offered, a.FilledPct, safemath.Scale7, true); err != nil {
		return nil, nil, err
	}
	requested, err = scale(a.Requested, a.FilledPct, safemath.Scale7, true)
	return offered, requested, err
}

// Fill is the outcome of filling part of an auction.
type Fill struct {
	Pct         uint64
	Elapsed     uint64
	Discount    uint64
	LotModifier uint64
	// Offered is the slice of the offered basket released by this fill.
	Offered []Entry
	// Awarded is the part of Offered the filler receives at the current
	// discount. The rest stays with its owner.
	Awarded []Entry
	// Requested is the slice of the requested basket the filler covers.
	Requested []Entry
	// Done is set when the auction is completely filled.
	Done bool
}

// Fill consumes pct (7 decimals) of the initial baskets at time now.
// Filling more than remains or filling an expired auction fails without
// changing the auction. Slices are computed cumulatively, so any sequence
// of fills that sums to 100% moves exactly the initial baskets.
func (a *Auction) Fill(pct, now uint64) (Fill, error) {
	if a.Expired(now) {
		return Fill{}, ErrExpired
	}
	if pct == 0 {
		return Fill{}, fmt.Errorf("%w: zero percent", ErrInvalidAmount)
	}
	after, err := safemath.Add(a.FilledPct, pct)
	if err != nil || after > safemath.Scale7 {
		return Fill{}, fmt.Errorf("%w: %d requested, %d remaining",
			ErrInvalidAmount, pct, safemath.Scale7-a.FilledPct)
	}

	offered, err := slice(a.Offered, a.FilledPct, after)
	if err != nil {
		return Fill{}, err
	}
	requested, err := slice(a.Requested, a.FilledPct, after)
	if err != nil {
		return Fill{}, err
	}

	elapsed := a.Elapsed(now)
	discount, err := a.Schedule.Discount(elapsed)
	if err != nil {
		return Fill{}, err
	}
	lotModifier, err := a.Schedule.LotModifier(elapsed)
	if err != nil {
		return Fill{}, err
	}
	awarded, err := scale(offered, lotModifier, safemath.Scale7, false)
	if err != nil {
		return Fill{}, err
	}

	a.FilledPct = after
	return Fill{
		Pct:         pct,
		Elapsed:     elapsed,
		Discount:    discount,
		LotModifier: lotModifier,
		Offered:     offered,
		Awarded:     awarded,
		Requested:   requested,
		Done:        after == safemath.Scale7,
	}, nil
}

// slice returns basket*after - basket*before per entry, both rounded down,
// with the final slice taking the exact remainder.
func slice(basket []Entry, before, after uint64) ([]Entry, error) {
	out := make([]Entry, len(basket))
	for i, e := range basket {
		lo, err := safemath.MulFloor(e.Amount, before, safemath.Scale7)
		if err != nil {
			return nil, err
		}
		hi := e.Amount
		if after < safemath.Scale7 {
			if hi, err = safemath.MulFloor(e.Amount, after, safemath.Scale7); err != nil {
				return nil, err
			}
		}
		out[i] = Entry{Asset: e.Asset, Amount: hi - lo}
	}
	return out, nil
}

// scale multiplies each entry by factor/denom. With complement set it
// keeps the part not covered by factor instead.
func scale(basket []Entry, factor, denom uint64, complement bool) ([]Entry, error) {
	out := make([]Entry, len(basket))
	for i, e := range basket {
		part, err := safemath.MulFloor(e.Amount, factor, denom)
		if err != nil {
			return nil, err
		}
		if complement {
			part = e.Amount - part
		}
		out[i] = Entry{Asset: e.Asset, Amount: part}
	}
	return out, nil
}

// Key is the composite identity of an auction.
type Key struct {
	User ids.ShortID
	Type Type
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.User, k.Type)
}
