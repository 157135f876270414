// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"testing"

	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/txs"
)

func newTestMetrics(t *testing.T) *metrics {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m.(*metrics)
}

func TestMarkTx(t *testing.T) {
	require := require.New(t)
	m := newTestMetrics(t)

	tx, err := txs.NewTx(&txs.SupplyTx{
		BaseTx:      txs.BaseTx{Sender: ids.GenerateTestShortID()},
		AssetAmount: txs.AssetAmount{Asset: ids.GenerateTestID(), Amount: 1},
	})
	require.NoError(err)

	m.MarkTx(tx, nil)
	m.MarkTx(tx, nil)
	m.MarkTx(tx, errors.New("boom"))

	require.InDelta(2, testutil.ToFloat64(m.txs.WithLabelValues("supply", accepted)), 0)
	require.InDelta(1, testutil.ToFloat64(m.txs.WithLabelValues("supply", rejected)), 0)
}

func TestMarkEvents(t *testing.T) {
	require := require.New(t)
	m := newTestMetrics(t)
	SetActiveAuctions(m, 1)

	asset := ids.GenerateTestID()
	m.MarkEvents([]events.Event{
		&events.AuctionCreated{Type: auction.UserLiquidation},
		&events.AuctionCreated{Type: auction.BadDebt},
		&events.AuctionFilled{Type: auction.UserLiquidation, Done: false},
		&events.AuctionFilled{Type: auction.UserLiquidation, Done: true},
		&events.AuctionExpired{Type: auction.Interest},
		&events.InterestAccrued{Asset: asset, Interest: 40},
		&events.InterestAccrued{Asset: asset, Interest: 2},
		&events.BadDebtCovered{Asset: asset, Amount: 7},
		&events.StatusChanged{},
	})

	require.InDelta(1, testutil.ToFloat64(m.auctionsCreated.WithLabelValues("bad_debt")), 0)
	require.InDelta(1, testutil.ToFloat64(m.auctionsFilled.WithLabelValues("user_liquidation")), 0)
	require.InDelta(1, testutil.ToFloat64(m.auctionsRemoved.WithLabelValues("interest", expiredLabel)), 0)
	require.InDelta(1, testutil.ToFloat64(m.activeAuctions), 0)
	require.InDelta(42, testutil.ToFloat64(m.interest.WithLabelValues(asset.String())), 0)
	require.InDelta(7, testutil.ToFloat64(m.badDebt.WithLabelValues(asset.String())), 0)
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)
	_, err = New(registry)
	require.Error(t, err)
}
