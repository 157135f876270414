// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration types for the pool VM.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config contains runtime parameters of the pool VM. It is not part of
// consensus; two nodes with different configs reach the same state.
type Config struct {
	// MaxTxsPerBlock bounds the transactions executed by one block.
	MaxTxsPerBlock int `json:"maxTxsPerBlock"`
	// MempoolSize bounds the transactions waiting for a block.
	MempoolSize int `json:"mempoolSize"`

	// ReserveCacheSize is the number of reserve configs kept in memory.
	ReserveCacheSize int `json:"reserveCacheSize"`
	// PositionCacheSize is the number of user positions kept in memory.
	PositionCacheSize int `json:"positionCacheSize"`

	// BlockInterval is how often the standalone node builds a block.
	BlockInterval time.Duration `json:"blockInterval"`

	// IndexAuctions keeps the in-memory auction index used by the
	// listing API.
	IndexAuctions bool `json:"indexAuctions"`
	// LogEvents writes every committed event at debug level.
	LogEvents bool `json:"logEvents"`
}

// DefaultConfig returns the default configuration for the pool VM.
func DefaultConfig() Config {
	return Config{
		MaxTxsPerBlock:    1_000,
		MempoolSize:       4_096,
		ReserveCacheSize:  64,
		PositionCacheSize: 8_192,
		BlockInterval:     2 * time.Second,
		IndexAuctions:     true,
		LogEvents:         false,
	}
}

// Parse decodes configBytes over the defaults. Empty bytes yield the
// defaults.
func Parse(configBytes []byte) (Config, error) {
	return Overlay(DefaultConfig(), configBytes)
}

// Overlay decodes configBytes over base. Fields absent from configBytes
// keep their base values.
func Overlay(base Config, configBytes []byte) (Config, error) {
	cfg := base
	if len(configBytes) == 0 {
		return cfg, cfg.Verify()
	}
	if err := json.Unmarshal(configBytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Verify()
}

// Verify checks that every limit is usable.
func (c Config) Verify() error {
	switch {
	case c.MaxTxsPerBlock <= 0:
		return fmt.Errorf("%w: max txs per block %d", ErrInvalidConfig, c.MaxTxsPerBlock)
	case c.MempoolSize <= 0:
		return fmt.Errorf("%w: mempool size %d", ErrInvalidConfig, c.MempoolSize)
	case c.ReserveCacheSize <= 0:
		return fmt.Errorf("%w: reserve cache size %d", ErrInvalidConfig, c.ReserveCacheSize)
	case c.PositionCacheSize <= 0:
		return fmt.Errorf("%w: position cache size %d", ErrInvalidConfig, c.PositionCacheSize)
	case c.BlockInterval <= 0:
		return fmt.Errorf("%w: block interval %s", ErrInvalidConfig, c.BlockInterval)
	}
	return nil
}
