// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

func testPool() Pool {
	p := DefaultPool()
	p.BackstopToken = ids.GenerateTestID()
	p.Oracle = ids.GenerateTestShortID()
	p.Admin = ids.GenerateTestShortID()
	for i := range 2 {
		p.Reserves = append(p.Reserves, Reserve{
			Asset: ids.GenerateTestID(),
			Config: reserve.Config{
				Index:            uint32(i),
				Decimals:         7,
				CollateralFactor: 9_000_000,
				LiabilityFactor:  9_000_000,
				MaxUtil:          9_500_000,
				ReserveFee:       1_000_000,
				Enabled:          true,
				Curve:            reserve.DefaultRateCurve(),
			},
		})
	}
	return p
}

func TestParseConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse(nil)
	require.NoError(err)
	require.Equal(DefaultConfig(), cfg)

	cfg, err = Parse([]byte(`{"maxTxsPerBlock":5,"blockInterval":1000000000}`))
	require.NoError(err)
	require.Equal(5, cfg.MaxTxsPerBlock)
	require.Equal(time.Second, cfg.BlockInterval)
	require.Equal(DefaultConfig().MempoolSize, cfg.MempoolSize)

	_, err = Parse([]byte(`{"mempoolSize":0}`))
	require.ErrorIs(err, ErrInvalidConfig)

	_, err = Parse([]byte(`{`))
	require.Error(err)
}

func TestOverlayConfig(t *testing.T) {
	require := require.New(t)

	base := DefaultConfig()
	base.MempoolSize = 7

	cfg, err := Overlay(base, []byte(`{"logEvents":true}`))
	require.NoError(err)
	require.Equal(7, cfg.MempoolSize)
	require.True(cfg.LogEvents)

	base.MaxTxsPerBlock = 0
	_, err = Overlay(base, nil)
	require.ErrorIs(err, ErrInvalidConfig)
}

func TestPoolValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Pool)
	}{
		{
			name:   "empty name",
			modify: func(p *Pool) { p.Name = "" },
		},
		{
			name:   "no backstop token",
			modify: func(p *Pool) { p.BackstopToken = ids.Empty },
		},
		{
			name:   "zero max positions",
			modify: func(p *Pool) { p.MaxPositions = 0 },
		},
		{
			name:   "min health below one",
			modify: func(p *Pool) { p.MinHealthFactor = 9_999_999 },
		},
		{
			name:   "target health below min health",
			modify: func(p *Pool) { p.TargetHealth = p.MinHealthFactor - 1 },
		},
		{
			name:   "no reserves",
			modify: func(p *Pool) { p.Reserves = nil },
		},
		{
			name:   "zero window",
			modify: func(p *Pool) { p.Window = 0 },
		},
		{
			name:   "discounts out of order",
			modify: func(p *Pool) { p.MinDiscount = p.MaxDiscount },
		},
		{
			name:   "duplicate asset",
			modify: func(p *Pool) { p.Reserves[1].Asset = p.Reserves[0].Asset },
		},
		{
			name:   "index mismatch",
			modify: func(p *Pool) { p.Reserves[1].Config.Index = 5 },
		},
		{
			name:   "collateral factor above one",
			modify: func(p *Pool) { p.Reserves[0].Config.CollateralFactor = 10_000_001 },
		},
		{
			name:   "zero liability factor",
			modify: func(p *Pool) { p.Reserves[0].Config.LiabilityFactor = 0 },
		},
		{
			name:   "kink at one",
			modify: func(p *Pool) { p.Reserves[0].Config.Curve.Kink = 10_000_000 },
		},
		{
			name:   "max util zero",
			modify: func(p *Pool) { p.Reserves[0].Config.MaxUtil = 0 },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := testPool()
			require.NoError(t, p.Validate())
			test.modify(&p)
			require.ErrorIs(t, p.Validate(), ErrInvalidPool)
		})
	}
}

func TestParsePoolRoundTrip(t *testing.T) {
	require := require.New(t)

	p := testPool()
	b, err := json.Marshal(p)
	require.NoError(err)

	parsed, err := ParsePool(b)
	require.NoError(err)
	require.Equal(p, parsed)
	require.Equal(auction.DefaultSchedule(), parsed.Schedule())

	_, err = ParsePool([]byte(`{"name":""}`))
	require.ErrorIs(err, ErrInvalidPool)
}
