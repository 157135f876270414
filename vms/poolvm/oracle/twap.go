// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"errors"

	"github.com/holiman/uint256"
)

// MaxObservations is the maximum number of observations kept per asset.
const MaxObservations = 1000

var ErrNoObservations = errors.New("no price observations available")

// Observation is a single price report.
type Observation struct {
	Value     uint64
	Timestamp uint64
}

// TWAP keeps a rolling window of observations for one asset. It is not
// safe for concurrent use; Feed serializes access.
type TWAP struct {
	observations []Observation
	window       uint64
}

// NewTWAP returns a TWAP over window seconds. A zero window reports the
// last observation.
func NewTWAP(window uint64) *TWAP {
	return &TWAP{
		observations: make([]Observation, 0, 16),
		window:       window,
	}
}

// Record appends an observation. Observations older than the newest one are
// ignored so the series stays ordered.
func (t *TWAP) Record(value, timestamp uint64) {
	if n := len(t.observations); n > 0 && timestamp < t.observations[n-1].Timestamp {
		return
	}
	t.observations = append(t.observations, Observation{Value: value, Timestamp: timestamp})
	t.prune(timestamp)
}

// prune drops observations older than twice the window.
func (t *TWAP) prune(now uint64) {
	start := 0
	if now > 2*t.window {
		cutoff := now - 2*t.window
		for start < len(t.observations)-1 && t.observations[start].Timestamp < cutoff {
			start++
		}
	}
	if excess := len(t.observations) - start - MaxObservations; excess > 0 {
		start += excess
	}
	if start > 0 {
		t.observations = append(t.observations[:0], t.observations[start:]...)
	}
}

// Last returns the most recent observation.
func (t *TWAP) Last() (Observation, error) {
	if len(t.observations) == 0 {
		return Observation{}, ErrNoObservations
	}
	return t.observations[len(t.observations)-1], nil
}

// PriceAt returns the time-weighted average over (at-window, at]. Each
// observation is weighted by how long it stood before the next one (or
// before at). With no observation inside the window the latest observation
// at or before at is returned.
func (t *TWAP) PriceAt(at uint64) (uint64, error) {
	var (
		prev     *Observation
		weighted = new(uint256.Int)
		total    uint64
	)
	windowStart := uint64(0)
	if at > t.window {
		windowStart = at - t.window
	}
	for i := range t.observations {
		obs := &t.observations[i]
		if obs.Timestamp > at {
			break
		}
		if obs.Timestamp <= windowStart || t.window == 0 {
			prev = obs
			continue
		}
		if prev != nil && prev.Timestamp > windowStart {
			addWeighted(weighted, prev.Value, obs.Timestamp-prev.Timestamp)
			total += obs.Timestamp - prev.Timestamp
		}
		prev = obs
	}
	if prev == nil {
		return 0, ErrNoObservations
	}
	if prev.Timestamp > windowStart && t.window > 0 {
		addWeighted(weighted, prev.Value, at-prev.Timestamp)
		total += at - prev.Timestamp
	}
	if total == 0 {
		return prev.Value, nil
	}
	return weighted.Div(weighted, uint256.NewInt(total)).Uint64(), nil
}

func addWeighted(acc *uint256.Int, value, duration uint64) {
	acc.Add(acc, new(uint256.Int).Mul(uint256.NewInt(value), uint256.NewInt(duration)))
}
