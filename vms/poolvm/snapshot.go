// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poolvm

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

// Snapshot is the pool-wide state at the last accepted block. User
// positions are not included.
type Snapshot struct {
	Height    uint64             `json:"height"`
	Timestamp uint64             `json:"timestamp"`
	Pool      config.Pool        `json:"pool"`
	Status    string             `json:"status"`
	Reserves  []*reserve.Reserve `json:"reserves"`
	Auctions  []*auction.Auction `json:"auctions"`
	// Backstop holds the fund's balance of every reserve asset and of the
	// backstop token.
	Backstop map[ids.ID]uint64 `json:"backstop"`
}

// Snapshot reads the pool-wide state with reserves accrued to the last
// accepted block.
func (vm *VM) Snapshot() (*Snapshot, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if !vm.initialized {
		return nil, errNotInitialized
	}
	cfg := vm.pool.Config()
	status, err := vm.pool.Status()
	if err != nil {
		return nil, err
	}
	reserves, err := vm.pool.Reserves(vm.timestamp)
	if err != nil {
		return nil, err
	}
	auctions, err := vm.pool.Auctions()
	if err != nil {
		return nil, err
	}

	backstop := make(map[ids.ID]uint64, len(cfg.Reserves)+1)
	assets := []ids.ID{cfg.BackstopToken}
	for _, r := range cfg.Reserves {
		assets = append(assets, r.Asset)
	}
	for _, asset := range assets {
		balance, err := vm.fund.Balance(asset)
		if err != nil {
			return nil, err
		}
		backstop[asset] = balance
	}

	return &Snapshot{
		Height:    vm.height,
		Timestamp: vm.timestamp,
		Pool:      cfg,
		Status:    status.String(),
		Reserves:  reserves,
		Auctions:  auctions,
		Backstop:  backstop,
	}, nil
}
