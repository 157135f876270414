// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package positions tracks per-user share balances and applies supply and
// debt changes to a user and a reserve in one step.
package positions

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	safemath "github.com/luxfi/lendvm/utils/math"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Balance is one reserve's share balance in serialized form.
type Balance struct {
	Index  uint32 `serialize:"true" json:"index"`
	Shares uint64 `serialize:"true" json:"shares"`
}

// Record is the serialized form of Positions with balances sorted by
// reserve index.
type Record struct {
	Collateral  []Balance `serialize:"true" json:"collateral"`
	Liabilities []Balance `serialize:"true" json:"liabilities"`
}

// Positions holds one user's supply and debt shares keyed by reserve index.
// Zero balances are never stored.
type Positions struct {
	Collateral  map[uint32]uint64
	Liabilities map[uint32]uint64
}

func New() *Positions {
	return &Positions{
		Collateral:  make(map[uint32]uint64),
		Liabilities: make(map[uint32]uint64),
	}
}

// FromRecord rebuilds positions from their serialized form.
func FromRecord(rec Record) *Positions {
	p := New()
	for _, b := range rec.Collateral {
		if b.Shares > 0 {
			p.Collateral[b.Index] = b.Shares
		}
	}
	for _, b := range rec.Liabilities {
		if b.Shares > 0 {
			p.Liabilities[b.Index] = b.Shares
		}
	}
	return p
}

// Record returns the deterministic serialized form.
func (p *Positions) Record() Record {
	return Record{
		Collateral:  toBalances(p.Collateral),
		Liabilities: toBalances(p.Liabilities),
	}
}

func toBalances(m map[uint32]uint64) []Balance {
	balances := make([]Balance, 0, len(m))
	for _, index := range slices.Sorted(maps.Keys(m)) {
		balances = append(balances, Balance{Index: index, Shares: m[index]})
	}
	return balances
}

// Clone returns a deep copy.
func (p *Positions) Clone() *Positions {
	return &Positions{
		Collateral:  maps.Clone(p.Collateral),
		Liabilities: maps.Clone(p.Liabilities),
	}
}

// Empty reports whether the user holds no shares.
func (p *Positions) Empty() bool {
	return len(p.Collateral) == 0 && len(p.Liabilities) == 0
}

// Count is the number of open positions, counting collateral and debt in
// the same reserve separately.
func (p *Positions) Count() int {
	return len(p.Collateral) + len(p.Liabilities)
}

// Indices returns every reserve index the user has a position in, sorted.
func (p *Positions) Indices() []uint32 {
	seen := maps.Clone(p.Collateral)
	for index := range p.Liabilities {
		seen[index] = 0
	}
	return slices.Sorted(maps.Keys(seen))
}

func (p *Positions) addCollateral(index uint32, shares uint64) error {
	return add(p.Collateral, index, shares)
}

func (p *Positions) removeCollateral(index uint32, shares uint64) error {
	return remove(p.Collateral, index, shares)
}

func (p *Positions) addLiability(index uint32, shares uint64) error {
	return add(p.Liabilities, index, shares)
}

func (p *Positions) removeLiability(index uint32, shares uint64) error {
	return remove(p.Liabilities, index, shares)
}

func add(m map[uint32]uint64, index uint32, shares uint64) error {
	if shares == 0 {
		return nil
	}
	balance, err := safemath.Add(m[index], shares)
	if err != nil {
		return err
	}
	m[index] = balance
	return nil
}

func remove(m map[uint32]uint64, index uint32, shares uint64) error {
	balance, err := safemath.Sub(m[index], shares)
	if err != nil {
		return fmt.Errorf("%w: reserve %d has %d, need %d", ErrInsufficientShares, index, m[index], shares)
	}
	if balance == 0 {
		delete(m, index)
		return nil
	}
	m[index] = balance
	return nil
}
