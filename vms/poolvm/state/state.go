// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists the pool: reserves, user positions, auctions and
// pool metadata. Writes go to a transaction layer stacked on a block layer.
// CommitTx and Abort settle one transaction inside the block; Commit and
// AbortBlock settle everything pending against the database.
package state

import (
	"errors"
	"fmt"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"

	hashicorplru "github.com/hashicorp/golang-lru"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

var (
	ErrReserveNotFound = errors.New("reserve not found")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrStateCorrupted  = errors.New("state corrupted")

	reserveConfigPrefix = []byte("reserve_config")
	reserveDataPrefix   = []byte("reserve_data")
	positionsPrefix     = []byte("positions")
	auctionsPrefix      = []byte("auctions")
	backstopPrefix      = []byte("backstop")
	metadataPrefix      = []byte("metadata")
	pricesPrefix        = []byte("prices")

	poolKey        = []byte("pool")
	statusKey      = []byte("status")
	heightKey      = []byte("height")
	timestampKey   = []byte("timestamp")
	initializedKey = []byte("initialized")
)

// Status gates which operations the pool accepts.
type Status uint8

const (
	// Active accepts every operation.
	Active Status = iota
	// OnIce rejects new borrows.
	OnIce
	// Frozen rejects new supply and new borrows.
	Frozen
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case OnIce:
		return "on_ice"
	case Frozen:
		return "frozen"
	default:
		return "unknown"
	}
}

func (s Status) Valid() bool {
	return s <= Frozen
}

// State is not safe for concurrent use. The VM serializes access.
type State struct {
	// block holds the writes of committed transactions until Commit.
	block *versiondb.Database
	// vdb holds the writes of the running transaction.
	vdb *versiondb.Database

	reserveConfigDB database.Database
	reserveDataDB   database.Database
	positionsDB     database.Database
	auctionsDB      database.Database
	backstopDB      database.Database
	metadataDB      database.Database
	pricesDB        database.Database

	// Reserve configs never change after listing.
	reserveConfigs *hashicorplru.Cache
	positions      cache.Cacher[ids.ShortID, positions.Record]
}

func New(db database.Database, reserveCacheSize, positionCacheSize int) (*State, error) {
	reserveConfigs, err := hashicorplru.New(reserveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reserve cache: %w", err)
	}

	block := versiondb.New(db)
	vdb := versiondb.New(block)
	return &State{
		block:           block,
		vdb:             vdb,
		reserveConfigDB: prefixdb.New(reserveConfigPrefix, vdb),
		reserveDataDB:   prefixdb.New(reserveDataPrefix, vdb),
		positionsDB:     prefixdb.New(positionsPrefix, vdb),
		auctionsDB:      prefixdb.New(auctionsPrefix, vdb),
		backstopDB:      prefixdb.New(backstopPrefix, vdb),
		metadataDB:      prefixdb.New(metadataPrefix, vdb),
		pricesDB:        prefixdb.New(pricesPrefix, vdb),
		reserveConfigs:  reserveConfigs,
		positions:       lru.NewCache[ids.ShortID, positions.Record](positionCacheSize),
	}, nil
}

// BackstopDB is the versioned database the backstop fund keeps its
// balances in.
func (s *State) BackstopDB() database.Database {
	return s.backstopDB
}

// CommitTx moves the running transaction's changes into the block layer.
// Nothing reaches the database until Commit.
func (s *State) CommitTx() error {
	return s.vdb.Commit()
}

// Abort drops the running transaction's changes. Changes already moved to
// the block layer stay.
func (s *State) Abort() {
	s.vdb.Abort()
	s.purge()
}

// Commit writes every pending change to the database in one batch.
func (s *State) Commit() error {
	if err := s.vdb.Commit(); err != nil {
		return err
	}
	return s.block.Commit()
}

// AbortBlock drops every change not yet written by Commit.
func (s *State) AbortBlock() {
	s.vdb.Abort()
	s.block.Abort()
	s.purge()
}

func (s *State) purge() {
	s.reserveConfigs.Purge()
	s.positions.Flush()
}

func (s *State) Close() error {
	return errors.Join(
		s.vdb.Close(),
		s.block.Close(),
	)
}

func (s *State) IsInitialized() (bool, error) {
	return s.metadataDB.Has(initializedKey)
}

func (s *State) SetInitialized() error {
	return s.metadataDB.Put(initializedKey, nil)
}

func (s *State) GetPool() (config.Pool, error) {
	var p config.Pool
	err := s.get(s.metadataDB, poolKey, &p)
	return p, err
}

func (s *State) PutPool(p config.Pool) error {
	return s.put(s.metadataDB, poolKey, &p)
}

// GetStatus returns Active until a status is stored.
func (s *State) GetStatus() (Status, error) {
	b, err := s.metadataDB.Get(statusKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return Active, nil
	case err != nil:
		return 0, err
	case len(b) != 1:
		return 0, fmt.Errorf("%w: status has %d bytes", ErrStateCorrupted, len(b))
	}
	return Status(b[0]), nil
}

func (s *State) PutStatus(status Status) error {
	return s.metadataDB.Put(statusKey, []byte{byte(status)})
}

// GetLastAccepted returns the height and timestamp of the last executed
// block, zero before the first one.
func (s *State) GetLastAccepted() (uint64, uint64, error) {
	height, err := getUInt64(s.metadataDB, heightKey)
	if err != nil {
		return 0, 0, err
	}
	timestamp, err := getUInt64(s.metadataDB, timestampKey)
	return height, timestamp, err
}

func (s *State) PutLastAccepted(height, timestamp uint64) error {
	return errors.Join(
		database.PutUInt64(s.metadataDB, heightKey, height),
		database.PutUInt64(s.metadataDB, timestampKey, timestamp),
	)
}

// AddReserve lists a reserve with fresh indices.
func (s *State) AddReserve(asset ids.ID, cfg reserve.Config, now uint64) error {
	if err := s.put(s.reserveConfigDB, asset[:], &cfg); err != nil {
		return err
	}
	s.reserveConfigs.Add(asset, cfg)
	data := reserve.NewData(now)
	return s.put(s.reserveDataDB, asset[:], &data)
}

// GetReserve loads a reserve snapshot. Mutations are not visible until
// PutReserve.
func (s *State) GetReserve(asset ids.ID) (*reserve.Reserve, error) {
	cfg, err := s.getReserveConfig(asset)
	if err != nil {
		return nil, err
	}
	var data reserve.Data
	if err := s.get(s.reserveDataDB, asset[:], &data); err != nil {
		return nil, s.reserveErr(asset, err)
	}
	return &reserve.Reserve{
		Asset:  asset,
		Config: cfg,
		Data:   data,
	}, nil
}

// PutReserve stores the reserve's mutable data.
func (s *State) PutReserve(r *reserve.Reserve) error {
	return s.put(s.reserveDataDB, r.Asset[:], &r.Data)
}

func (s *State) getReserveConfig(asset ids.ID) (reserve.Config, error) {
	if cfg, ok := s.reserveConfigs.Get(asset); ok {
		return cfg.(reserve.Config), nil
	}
	var cfg reserve.Config
	if err := s.get(s.reserveConfigDB, asset[:], &cfg); err != nil {
		return reserve.Config{}, s.reserveErr(asset, err)
	}
	s.reserveConfigs.Add(asset, cfg)
	return cfg, nil
}

func (*State) reserveErr(asset ids.ID, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrReserveNotFound, asset)
	}
	return err
}

// GetPositions returns a copy of the user's positions, empty if the user
// has none.
func (s *State) GetPositions(user ids.ShortID) (*positions.Positions, error) {
	if rec, ok := s.positions.Get(user); ok {
		return positions.FromRecord(rec), nil
	}
	var rec positions.Record
	err := s.get(s.positionsDB, user[:], &rec)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	s.positions.Put(user, rec)
	return positions.FromRecord(rec), nil
}

// PutPositions stores the user's positions, removing the record once it is
// empty.
func (s *State) PutPositions(user ids.ShortID, p *positions.Positions) error {
	rec := p.Record()
	s.positions.Put(user, rec)
	if p.Empty() {
		return s.positionsDB.Delete(user[:])
	}
	return s.put(s.positionsDB, user[:], &rec)
}

func (s *State) GetAuction(key auction.Key) (*auction.Auction, error) {
	a := &auction.Auction{}
	err := s.get(s.auctionsDB, auctionKey(key), a)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAuctionNotFound, key)
	}
	return a, err
}

func (s *State) PutAuction(a *auction.Auction) error {
	return s.put(s.auctionsDB, auctionKey(a.Key()), a)
}

func (s *State) DeleteAuction(key auction.Key) error {
	return s.auctionsDB.Delete(auctionKey(key))
}

// Auctions returns every stored auction ordered by key.
func (s *State) Auctions() ([]*auction.Auction, error) {
	it := s.auctionsDB.NewIterator()
	defer it.Release()

	var auctions []*auction.Auction
	for it.Next() {
		a := &auction.Auction{}
		if _, err := Codec.Unmarshal(it.Value(), a); err != nil {
			return nil, fmt.Errorf("%w: auction %x: %w", ErrStateCorrupted, it.Key(), err)
		}
		auctions = append(auctions, a)
	}
	return auctions, it.Error()
}

// Price is the last report published for an asset.
type Price struct {
	Value     uint64 `serialize:"true"`
	Timestamp uint64 `serialize:"true"`
}

func (s *State) PutPrice(asset ids.ID, p Price) error {
	return s.put(s.pricesDB, asset[:], &p)
}

// Prices returns the last report of every priced asset.
func (s *State) Prices() (map[ids.ID]Price, error) {
	it := s.pricesDB.NewIterator()
	defer it.Release()

	prices := make(map[ids.ID]Price)
	for it.Next() {
		asset, err := ids.ToID(it.Key())
		if err != nil {
			return nil, fmt.Errorf("%w: price key %x: %w", ErrStateCorrupted, it.Key(), err)
		}
		var p Price
		if _, err := Codec.Unmarshal(it.Value(), &p); err != nil {
			return nil, fmt.Errorf("%w: price %s: %w", ErrStateCorrupted, asset, err)
		}
		prices[asset] = p
	}
	return prices, it.Error()
}

func auctionKey(key auction.Key) []byte {
	b := make([]byte, 0, len(key.User)+1)
	b = append(b, key.User[:]...)
	return append(b, byte(key.Type))
}

func (*State) get(db database.Database, key []byte, dst any) error {
	b, err := db.Get(key)
	if err != nil {
		return err
	}
	if _, err := Codec.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: %x: %w", ErrStateCorrupted, key, err)
	}
	return nil
}

func (*State) put(db database.Database, key []byte, src any) error {
	b, err := Codec.Marshal(CodecVersion, src)
	if err != nil {
		return err
	}
	return db.Put(key, b)
}

func getUInt64(db database.Database, key []byte) (uint64, error) {
	v, err := database.GetUInt64(db, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return v, err
}
