// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"fmt"
	"sync"

	"github.com/luxfi/ids"
)

var _ Oracle = (*Feed)(nil)

// Feed serves prices reported by the pool's price authority. When a TWAP
// window is set the reported value is the time-weighted average ending at
// the latest report, and the timestamp is that of the latest report.
type Feed struct {
	mu     sync.RWMutex
	window uint64
	twaps  map[ids.ID]*TWAP
}

// NewFeed returns an empty feed averaging over window seconds.
func NewFeed(window uint64) *Feed {
	return &Feed{
		window: window,
		twaps:  make(map[ids.ID]*TWAP),
	}
}

// SetPrice records a report for asset.
func (f *Feed) SetPrice(asset ids.ID, value, timestamp uint64) error {
	if value == 0 {
		return fmt.Errorf("%w: asset %s", ErrInvalidPrice, asset)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	twap, ok := f.twaps[asset]
	if !ok {
		twap = NewTWAP(f.window)
		f.twaps[asset] = twap
	}
	twap.Record(value, timestamp)
	return nil
}

// Price implements Oracle.
func (f *Feed) Price(asset ids.ID) (Price, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	twap, ok := f.twaps[asset]
	if !ok {
		return Price{}, ErrPriceNotFound
	}
	last, err := twap.Last()
	if err != nil {
		return Price{}, ErrPriceNotFound
	}
	value, err := twap.PriceAt(last.Timestamp)
	if err != nil {
		return Price{}, err
	}
	return Price{Value: value, Timestamp: last.Timestamp}, nil
}

// Checkpoint is a copy of every asset's observations.
type Checkpoint map[ids.ID][]Observation

// Checkpoint copies the feed so Restore can undo later reports.
func (f *Feed) Checkpoint() Checkpoint {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c := make(Checkpoint, len(f.twaps))
	for asset, twap := range f.twaps {
		c[asset] = append([]Observation(nil), twap.observations...)
	}
	return c
}

// Restore replaces the feed's observations with c.
func (f *Feed) Restore(c Checkpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.twaps = make(map[ids.ID]*TWAP, len(c))
	for asset, observations := range c {
		twap := NewTWAP(f.window)
		twap.observations = append(twap.observations, observations...)
		f.twaps[asset] = twap
	}
}

// Assets returns the number of assets with at least one report.
func (f *Feed) Assets() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.twaps)
}
