// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poolvm

import (
	"time"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"

	"github.com/luxfi/lendvm/utils/wrappers"
	"github.com/luxfi/lendvm/vms/poolvm/events"
)

// TxFailure records a transaction the block included but could not
// execute.
type TxFailure struct {
	TxID ids.ID
	Err  error
}

// BlockResult is the deterministic outcome of processing a block. Two
// nodes processing the same block over the same state produce the same
// result.
type BlockResult struct {
	// ID commits to the height, the timestamp and the included
	// transactions in order.
	ID        ids.ID
	Height    uint64
	Timestamp time.Time

	Accepted []ids.ID
	Rejected []TxFailure

	// Events emitted by the accepted transactions, in execution order.
	Events []events.Event
}

func blockID(height uint64, timestamp uint64, txIDs []ids.ID) ids.ID {
	size := 2*wrappers.LongLen + wrappers.IntLen + len(txIDs)*ids.IDLen
	p := wrappers.Packer{
		Bytes:   make([]byte, 0, size),
		MaxSize: size,
	}
	p.PackLong(height)
	p.PackLong(timestamp)
	p.PackInt(uint32(len(txIDs)))
	for _, txID := range txIDs {
		p.PackFixedBytes(txID[:])
	}
	return hash.ComputeHash256Array(p.Bytes)
}
