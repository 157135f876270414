// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api serves the pool over JSON-RPC.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/luxfi/formatting"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lendvm/utils/json"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

// MaxAuctions bounds a ListAuctions page.
const MaxAuctions = 1_024

var ErrInvalidRequest = errors.New("invalid request")

// VM is what the service reads from and issues to.
type VM interface {
	GetStatus() (Status, error)
	GetReserve(asset ids.ID) (*reserve.Reserve, error)
	GetReserves() ([]*reserve.Reserve, error)
	GetPositions(user ids.ShortID) (*positions.Positions, error)
	GetAccount(user ids.ShortID) (health.Account, health.Class, error)
	GetBackstopBalance(asset ids.ID) (uint64, error)
	GetAuction(key auction.Key) (*auction.Auction, error)
	ListAuctions(limit int) ([]*auction.Auction, error)
	IssueTx(txBytes []byte) (ids.ID, error)
}

// Status is a snapshot of the VM.
type Status struct {
	Pool         config.Pool
	Status       state.Status
	Height       uint64
	Timestamp    uint64
	Bootstrapped bool
	PendingTxs   int
	Auctions     int
}

// Service is the "pool" JSON-RPC service.
type Service struct {
	vm  VM
	log log.Logger
}

func NewService(vm VM, logger log.Logger) *Service {
	return &Service{vm: vm, log: logger}
}

type StatusReply struct {
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	Height       json.Uint64 `json:"height"`
	Timestamp    json.Uint64 `json:"timestamp"`
	Bootstrapped bool        `json:"bootstrapped"`
	PendingTxs   json.Uint32 `json:"pendingTxs"`
	Auctions     json.Uint32 `json:"auctions"`
	Oracle       ids.ShortID `json:"oracle"`
	Admin        ids.ShortID `json:"admin"`
	Reserves     []ids.ID    `json:"reserves"`
}

// Status returns the pool status and last accepted block.
func (s *Service) Status(_ *http.Request, _ *struct{}, reply *StatusReply) error {
	status, err := s.vm.GetStatus()
	if err != nil {
		return err
	}
	reply.Name = status.Pool.Name
	reply.Status = status.Status.String()
	reply.Height = json.Uint64(status.Height)
	reply.Timestamp = json.Uint64(status.Timestamp)
	reply.Bootstrapped = status.Bootstrapped
	reply.PendingTxs = json.Uint32(status.PendingTxs)
	reply.Auctions = json.Uint32(status.Auctions)
	reply.Oracle = status.Pool.Oracle
	reply.Admin = status.Pool.Admin
	reply.Reserves = make([]ids.ID, len(status.Pool.Reserves))
	for i, r := range status.Pool.Reserves {
		reply.Reserves[i] = r.Asset
	}
	return nil
}

type AssetArgs struct {
	Asset ids.ID `json:"asset"`
}

// Reserve is the JSON view of a reserve accrued to the query time.
type Reserve struct {
	Asset            ids.ID      `json:"asset"`
	Index            json.Uint32 `json:"index"`
	Decimals         json.Uint32 `json:"decimals"`
	Enabled          bool        `json:"enabled"`
	CollateralFactor json.Uint64 `json:"collateralFactor"`
	LiabilityFactor  json.Uint64 `json:"liabilityFactor"`
	MaxUtil          json.Uint64 `json:"maxUtil"`
	BRate            json.Uint64 `json:"bRate"`
	DRate            json.Uint64 `json:"dRate"`
	BSupply          json.Uint64 `json:"bSupply"`
	DSupply          json.Uint64 `json:"dSupply"`
	TotalSupply      json.Uint64 `json:"totalSupply"`
	TotalLiabilities json.Uint64 `json:"totalLiabilities"`
	Utilization      json.Uint64 `json:"utilization"`
	BorrowRate       json.Uint64 `json:"borrowRate"`
	SupplyRate       json.Uint64 `json:"supplyRate"`
	BackstopCredit   json.Uint64 `json:"backstopCredit"`
	LastTime         json.Uint64 `json:"lastTime"`
}

func newReserve(r *reserve.Reserve) (Reserve, error) {
	supply, err := r.TotalSupply()
	if err != nil {
		return Reserve{}, err
	}
	liabilities, err := r.TotalLiabilities()
	if err != nil {
		return Reserve{}, err
	}
	util, err := r.Utilization()
	if err != nil {
		return Reserve{}, err
	}
	borrowRate, supplyRate, err := r.Rates()
	if err != nil {
		return Reserve{}, err
	}
	return Reserve{
		Asset:            r.Asset,
		Index:            json.Uint32(r.Index),
		Decimals:         json.Uint32(r.Decimals),
		Enabled:          r.Enabled,
		CollateralFactor: json.Uint64(r.CollateralFactor),
		LiabilityFactor:  json.Uint64(r.LiabilityFactor),
		MaxUtil:          json.Uint64(r.MaxUtil),
		BRate:            json.Uint64(r.BRate),
		DRate:            json.Uint64(r.DRate),
		BSupply:          json.Uint64(r.BSupply),
		DSupply:          json.Uint64(r.DSupply),
		TotalSupply:      json.Uint64(supply),
		TotalLiabilities: json.Uint64(liabilities),
		Utilization:      json.Uint64(util),
		BorrowRate:       json.Uint64(borrowRate),
		SupplyRate:       json.Uint64(supplyRate),
		BackstopCredit:   json.Uint64(r.BackstopCredit),
		LastTime:         json.Uint64(r.LastTime),
	}, nil
}

type GetReserveReply struct {
	Reserve Reserve `json:"reserve"`
}

// GetReserve returns one reserve accrued to now.
func (s *Service) GetReserve(_ *http.Request, args *AssetArgs, reply *GetReserveReply) error {
	s.log.Debug("API called",
		log.String("service", "pool"),
		log.String("method", "getReserve"),
		log.Stringer("asset", args.Asset),
	)

	r, err := s.vm.GetReserve(args.Asset)
	if err != nil {
		return err
	}
	reply.Reserve, err = newReserve(r)
	return err
}

type GetReservesReply struct {
	Reserves []Reserve `json:"reserves"`
}

// GetReserves returns every reserve in index order.
func (s *Service) GetReserves(_ *http.Request, _ *struct{}, reply *GetReservesReply) error {
	reserves, err := s.vm.GetReserves()
	if err != nil {
		return err
	}
	reply.Reserves = make([]Reserve, len(reserves))
	for i, r := range reserves {
		if reply.Reserves[i], err = newReserve(r); err != nil {
			return err
		}
	}
	return nil
}

type UserArgs struct {
	User ids.ShortID `json:"user"`
}

type Balance struct {
	Index  json.Uint32 `json:"index"`
	Shares json.Uint64 `json:"shares"`
}

type GetPositionsReply struct {
	Collateral  []Balance `json:"collateral"`
	Liabilities []Balance `json:"liabilities"`
}

func newBalances(bs []positions.Balance) []Balance {
	out := make([]Balance, len(bs))
	for i, b := range bs {
		out[i] = Balance{Index: json.Uint32(b.Index), Shares: json.Uint64(b.Shares)}
	}
	return out
}

// GetPositions returns a user's share balances.
func (s *Service) GetPositions(_ *http.Request, args *UserArgs, reply *GetPositionsReply) error {
	pos, err := s.vm.GetPositions(args.User)
	if err != nil {
		return err
	}
	rec := pos.Record()
	reply.Collateral = newBalances(rec.Collateral)
	reply.Liabilities = newBalances(rec.Liabilities)
	return nil
}

type AssetValue struct {
	Asset     ids.ID      `json:"asset"`
	Amount    json.Uint64 `json:"amount"`
	Raw       json.Uint64 `json:"raw"`
	Effective json.Uint64 `json:"effective"`
}

type GetAccountReply struct {
	Class         string       `json:"class"`
	HealthFactor  json.Uint64  `json:"healthFactor"`
	CollateralRaw json.Uint64  `json:"collateralRaw"`
	Collateral    json.Uint64  `json:"collateral"`
	LiabilityRaw  json.Uint64  `json:"liabilityRaw"`
	Liability     json.Uint64  `json:"liability"`
	Supplied      []AssetValue `json:"supplied"`
	Borrowed      []AssetValue `json:"borrowed"`
}

func newAssetValues(vs []health.AssetValue) []AssetValue {
	out := make([]AssetValue, len(vs))
	for i, v := range vs {
		out[i] = AssetValue{
			Asset:     v.Asset,
			Amount:    json.Uint64(v.Amount),
			Raw:       json.Uint64(v.Raw),
			Effective: json.Uint64(v.Effective),
		}
	}
	return out
}

// GetAccount values a user's positions at current prices and classifies
// them.
func (s *Service) GetAccount(_ *http.Request, args *UserArgs, reply *GetAccountReply) error {
	acc, class, err := s.vm.GetAccount(args.User)
	if err != nil {
		return err
	}
	reply.Class = class.String()
	reply.HealthFactor = json.Uint64(acc.Ratio())
	reply.CollateralRaw = json.Uint64(acc.CollateralRaw)
	reply.Collateral = json.Uint64(acc.Collateral)
	reply.LiabilityRaw = json.Uint64(acc.LiabilityRaw)
	reply.Liability = json.Uint64(acc.Liability)
	reply.Supplied = newAssetValues(acc.CollateralAssets)
	reply.Borrowed = newAssetValues(acc.LiabilityAssets)
	return nil
}

type GetBackstopBalanceReply struct {
	Balance json.Uint64 `json:"balance"`
}

// GetBackstopBalance returns the backstop fund's holding of an asset.
func (s *Service) GetBackstopBalance(_ *http.Request, args *AssetArgs, reply *GetBackstopBalanceReply) error {
	balance, err := s.vm.GetBackstopBalance(args.Asset)
	if err != nil {
		return err
	}
	reply.Balance = json.Uint64(balance)
	return nil
}

type Entry struct {
	Asset  ids.ID      `json:"asset"`
	Amount json.Uint64 `json:"amount"`
}

type Auction struct {
	User        ids.ShortID `json:"user"`
	Type        string      `json:"type"`
	CreatedAt   json.Uint64 `json:"createdAt"`
	FilledPct   json.Uint64 `json:"filledPct"`
	Window      json.Uint64 `json:"window"`
	MaxDiscount json.Uint64 `json:"maxDiscount"`
	Offered     []Entry     `json:"offered"`
	Requested   []Entry     `json:"requested"`
}

func newEntries(es []auction.Entry) []Entry {
	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = Entry{Asset: e.Asset, Amount: json.Uint64(e.Amount)}
	}
	return out
}

func newAuction(a *auction.Auction) Auction {
	return Auction{
		User:        a.User,
		Type:        a.Type.String(),
		CreatedAt:   json.Uint64(a.CreatedAt),
		FilledPct:   json.Uint64(a.FilledPct),
		Window:      json.Uint64(a.Schedule.Window),
		MaxDiscount: json.Uint64(a.Schedule.MaxDiscount),
		Offered:     newEntries(a.Offered),
		Requested:   newEntries(a.Requested),
	}
}

type GetAuctionArgs struct {
	User ids.ShortID `json:"user"`
	Type json.Uint32 `json:"type"`
}

type GetAuctionReply struct {
	Auction Auction `json:"auction"`
}

// GetAuction returns the auction of a type for a user. Interest auctions
// ignore the user.
func (s *Service) GetAuction(_ *http.Request, args *GetAuctionArgs, reply *GetAuctionReply) error {
	if uint32(args.Type) > uint32(auction.Interest) {
		return fmt.Errorf("%w: auction type %d", ErrInvalidRequest, args.Type)
	}
	key := auction.Key{User: args.User, Type: auction.Type(args.Type)}
	if key.Type == auction.Interest {
		key.User = ids.ShortEmpty
	}
	a, err := s.vm.GetAuction(key)
	if err != nil {
		return err
	}
	reply.Auction = newAuction(a)
	return nil
}

type ListAuctionsArgs struct {
	Limit json.Uint32 `json:"limit"`
}

type ListAuctionsReply struct {
	Auctions []Auction `json:"auctions"`
}

// ListAuctions returns live auctions, oldest first.
func (s *Service) ListAuctions(_ *http.Request, args *ListAuctionsArgs, reply *ListAuctionsReply) error {
	limit := int(args.Limit)
	if limit == 0 || limit > MaxAuctions {
		limit = MaxAuctions
	}
	auctions, err := s.vm.ListAuctions(limit)
	if err != nil {
		return err
	}
	reply.Auctions = make([]Auction, len(auctions))
	for i, a := range auctions {
		reply.Auctions[i] = newAuction(a)
	}
	return nil
}

type IssueTxArgs struct {
	Tx       string              `json:"tx"`
	Encoding formatting.Encoding `json:"encoding"`
}

type IssueTxReply struct {
	TxID ids.ID `json:"txID"`
}

// IssueTx queues an encoded transaction for the next block.
func (s *Service) IssueTx(_ *http.Request, args *IssueTxArgs, reply *IssueTxReply) error {
	txBytes, err := formatting.Decode(args.Encoding, args.Tx)
	if err != nil {
		return fmt.Errorf("%w: couldn't decode tx: %w", ErrInvalidRequest, err)
	}
	reply.TxID, err = s.vm.IssueTx(txBytes)
	return err
}
