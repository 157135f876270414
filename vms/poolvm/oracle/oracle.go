// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle defines the price source consulted by the pool and an
// in-memory feed that serves time-weighted prices.
package oracle

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
)

var (
	ErrPriceNotFound = errors.New("price not found")
	ErrStalePrice    = errors.New("stale price")
	ErrInvalidPrice  = errors.New("invalid price")
)

// Price is a quote in the oracle's base unit with 7 decimals.
type Price struct {
	Value     uint64 `json:"value"`
	Timestamp uint64 `json:"timestamp"`
}

// Oracle returns the latest known price of an asset.
type Oracle interface {
	Price(asset ids.ID) (Price, error)
}

// Fresh returns the price of asset if one exists, is positive, and is no
// older than maxAge seconds at now. A zero maxAge disables the age check.
func Fresh(o Oracle, asset ids.ID, now, maxAge uint64) (Price, error) {
	p, err := o.Price(asset)
	if err != nil {
		return Price{}, fmt.Errorf("%w: asset %s", err, asset)
	}
	if p.Value == 0 {
		return Price{}, fmt.Errorf("%w: asset %s has zero price", ErrInvalidPrice, asset)
	}
	if maxAge > 0 && now > p.Timestamp && now-p.Timestamp > maxAge {
		return Price{}, fmt.Errorf("%w: asset %s priced at %d, now %d", ErrStalePrice, asset, p.Timestamp, now)
	}
	return p, nil
}
