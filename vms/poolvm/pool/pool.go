// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool executes lending operations against persistent state.
//
// Every operation accrues the reserves it touches to the given time,
// applies its changes, re-checks solvency and then writes everything back.
// Operations may leave partial writes in the state's versioned layer when
// they fail; the caller aborts the layer on error and commits it on
// success.
package pool

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/backstop"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/oracle"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

var (
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrDuplicateAsset        = errors.New("duplicate asset")
	ErrPoolFrozen            = errors.New("pool is frozen")
	ErrBorrowingDisabled     = errors.New("borrowing disabled")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrTooManyPositions      = errors.New("too many positions")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNotLiquidatable       = errors.New("account is not liquidatable")
	ErrNoBadDebt             = errors.New("account has no bad debt")
	ErrNoCredit              = errors.New("no backstop credit to auction")
	ErrAuctionExists         = errors.New("auction already exists")
	ErrAuctionNotFound       = state.ErrAuctionNotFound
	ErrAuctionNotExpired     = errors.New("auction has not expired")
	ErrInvalidFiller         = errors.New("invalid filler")
	ErrStaleAuction          = errors.New("auction exceeds the user's position")
	ErrInvalidAuctionType    = errors.New("invalid auction type")
)

// Pool is not safe for concurrent use.
type Pool struct {
	cfg       config.Pool
	state     *state.State
	evaluator health.Evaluator
	backstop  backstop.Backstop
	sizer     auction.Sizer
	emitter   events.Emitter
	log       log.Logger

	assets  []ids.ID
	indices map[ids.ID]uint32
}

// New returns a pool over s. cfg must already be validated.
func New(
	cfg config.Pool,
	s *state.State,
	o oracle.Oracle,
	b backstop.Backstop,
	emitter events.Emitter,
	logger log.Logger,
) *Pool {
	p := &Pool{
		cfg:   cfg,
		state: s,
		evaluator: health.Evaluator{
			Oracle:      o,
			MaxPriceAge: cfg.MaxPriceAge,
		},
		backstop: b,
		sizer:    cfg.Sizer(),
		emitter:  emitter,
		log:      logger,
		assets:   make([]ids.ID, len(cfg.Reserves)),
		indices:  make(map[ids.ID]uint32, len(cfg.Reserves)),
	}
	for i, r := range cfg.Reserves {
		p.assets[i] = r.Asset
		p.indices[r.Asset] = uint32(i)
	}
	return p
}

// Config returns the pool's configuration.
func (p *Pool) Config() config.Pool {
	return p.cfg
}

// Listed reports whether asset is one of the pool's reserves.
func (p *Pool) Listed(asset ids.ID) bool {
	_, ok := p.indices[asset]
	return ok
}

// Status returns the current pool status.
func (p *Pool) Status() (state.Status, error) {
	return p.state.GetStatus()
}

// Reserve returns the reserve accrued to now without storing the accrual.
func (p *Pool) Reserve(asset ids.ID, now uint64) (*reserve.Reserve, error) {
	return p.query(now).reserve(asset)
}

// Reserves returns every listed reserve accrued to now.
func (p *Pool) Reserves(now uint64) ([]*reserve.Reserve, error) {
	b := p.query(now)
	reserves := make([]*reserve.Reserve, len(p.assets))
	for i := range p.assets {
		r, err := b.reserveAt(uint32(i))
		if err != nil {
			return nil, err
		}
		reserves[i] = r
	}
	return reserves, nil
}

func (p *Pool) Positions(user ids.ShortID) (*positions.Positions, error) {
	return p.state.GetPositions(user)
}

// Account values the user's positions at now and classifies them against
// the pool's minimum health.
func (p *Pool) Account(user ids.ShortID, now uint64) (health.Account, health.Class, error) {
	pos, err := p.state.GetPositions(user)
	if err != nil {
		return health.Account{}, 0, err
	}
	acc, err := p.query(now).account(pos)
	if err != nil {
		return health.Account{}, 0, err
	}
	return acc, acc.Classify(p.cfg.MinHealthFactor), nil
}

func (p *Pool) Auction(key auction.Key) (*auction.Auction, error) {
	return p.state.GetAuction(key)
}

func (p *Pool) Auctions() ([]*auction.Auction, error) {
	return p.state.Auctions()
}

// SetStatus changes which operations the pool accepts.
func (p *Pool) SetStatus(status state.Status, now uint64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
	if err := p.state.PutStatus(status); err != nil {
		return err
	}
	p.emitter.Emit(&events.StatusChanged{
		Status: uint8(status),
		Time:   now,
	})
	p.log.Info("pool status changed",
		log.Stringer("status", status),
	)
	return nil
}

func (p *Pool) requirePositionLimit(pos *positions.Positions) error {
	if count := pos.Count(); count > int(p.cfg.MaxPositions) {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPositions, count, p.cfg.MaxPositions)
	}
	return nil
}

// batch holds the reserves one operation touches, each loaded and accrued
// once.
type batch struct {
	p        *Pool
	now      uint64
	reserves health.Reserves
	// quiet suppresses accrual events for read-only views.
	quiet bool
}

func (p *Pool) newBatch(now uint64) *batch {
	return &batch{
		p:        p,
		now:      now,
		reserves: make(health.Reserves),
	}
}

func (p *Pool) query(now uint64) *batch {
	b := p.newBatch(now)
	b.quiet = true
	return b
}

func (b *batch) reserve(asset ids.ID) (*reserve.Reserve, error) {
	index, ok := b.p.indices[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return b.reserveAt(index)
}

func (b *batch) reserveAt(index uint32) (*reserve.Reserve, error) {
	if r, ok := b.reserves[index]; ok {
		return r, nil
	}
	if int(index) >= len(b.p.assets) {
		return nil, fmt.Errorf("%w: index %d", health.ErrUnknownReserve, index)
	}
	r, err := b.p.state.GetReserve(b.p.assets[index])
	if err != nil {
		return nil, err
	}
	accrual, err := r.Accrue(b.now, b.p.cfg.MaxAccrualStep)
	if err != nil {
		return nil, fmt.Errorf("failed to accrue %s: %w", r.Asset, err)
	}
	if accrual.Interest > 0 && !b.quiet {
		b.p.emitter.Emit(&events.InterestAccrued{
			Asset:    r.Asset,
			Interest: accrual.Interest,
			Credit:   accrual.Credit,
			BRate:    r.BRate,
			DRate:    r.DRate,
			Time:     b.now,
		})
	}
	b.reserves[index] = r
	return r, nil
}

// account loads every reserve pos touches and values it.
func (b *batch) account(pos *positions.Positions) (health.Account, error) {
	for _, index := range pos.Indices() {
		if _, err := b.reserveAt(index); err != nil {
			return health.Account{}, err
		}
	}
	return b.p.evaluator.Evaluate(pos, b.reserves, b.now)
}

// requireHealthy fails if pos has debt and is below the pool's minimum
// health.
func (b *batch) requireHealthy(pos *positions.Positions) error {
	if len(pos.Liabilities) == 0 {
		return nil
	}
	acc, err := b.account(pos)
	if err != nil {
		return err
	}
	return acc.RequireHealthy(b.p.cfg.MinHealthFactor)
}

func (b *batch) store() error {
	for _, r := range b.reserves {
		if err := b.p.state.PutReserve(r); err != nil {
			return err
		}
	}
	return nil
}
