// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/txs"
)

const (
	namespace = "poolvm"

	txLabel      = "tx"
	resultLabel  = "result"
	typeLabel    = "type"
	assetLabel   = "asset"
	accepted     = "accepted"
	rejected     = "rejected"
	expiredLabel = "expired"
	deletedLabel = "deleted"
)

// Metrics tracks what the pool commits.
type Metrics interface {
	// MarkTx counts a processed transaction. err is the execution result.
	MarkTx(tx *txs.Tx, err error)
	// MarkEvents updates the metrics derived from committed events.
	MarkEvents(evs []events.Event)
	// MarkBlock records the last processed block.
	MarkBlock(height uint64, numTxs int)
	SetMempoolSize(n int)
}

type metrics struct {
	txNamer txNamer

	txs             *prometheus.CounterVec
	auctionsCreated *prometheus.CounterVec
	auctionsFilled  *prometheus.CounterVec
	auctionsRemoved *prometheus.CounterVec
	activeAuctions  prometheus.Gauge
	interest        *prometheus.CounterVec
	badDebt         *prometheus.CounterVec
	height          prometheus.Gauge
	blockTxs        prometheus.Histogram
	mempool         prometheus.Gauge
}

func New(registerer prometheus.Registerer) (Metrics, error) {
	m := &metrics{
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs",
			Help:      "number of processed transactions by type and result",
		}, []string{txLabel, resultLabel}),
		auctionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_created",
			Help:      "number of auctions created",
		}, []string{typeLabel}),
		auctionsFilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_filled",
			Help:      "number of auctions filled to completion",
		}, []string{typeLabel}),
		auctionsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_removed",
			Help:      "number of expired auctions removed",
		}, []string{typeLabel, resultLabel}),
		activeAuctions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_auctions",
			Help:      "number of auctions in state",
		}),
		interest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interest_accrued",
			Help:      "interest charged to borrowers in underlying units",
		}, []string{assetLabel}),
		badDebt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bad_debt_covered",
			Help:      "debt absorbed by the backstop in underlying units",
		}, []string{assetLabel}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "height",
			Help:      "height of the last processed block",
		}),
		blockTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_txs",
			Help:      "number of transactions per block",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
		mempool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mempool_txs",
			Help:      "number of transactions waiting in the mempool",
		}),
	}

	err := errors.Join(
		registerer.Register(m.txs),
		registerer.Register(m.auctionsCreated),
		registerer.Register(m.auctionsFilled),
		registerer.Register(m.auctionsRemoved),
		registerer.Register(m.activeAuctions),
		registerer.Register(m.interest),
		registerer.Register(m.badDebt),
		registerer.Register(m.height),
		registerer.Register(m.blockTxs),
		registerer.Register(m.mempool),
	)
	return m, err
}

func (m *metrics) MarkTx(tx *txs.Tx, err error) {
	result := accepted
	if err != nil {
		result = rejected
	}
	// The namer never fails.
	_ = tx.Unsigned.Visit(&m.txNamer)
	m.txs.WithLabelValues(m.txNamer.name, result).Inc()
}

func (m *metrics) MarkEvents(evs []events.Event) {
	for _, e := range evs {
		switch e := e.(type) {
		case *events.AuctionCreated:
			m.auctionsCreated.WithLabelValues(e.Type.String()).Inc()
			m.activeAuctions.Inc()
		case *events.AuctionFilled:
			if e.Done {
				m.auctionsFilled.WithLabelValues(e.Type.String()).Inc()
				m.activeAuctions.Dec()
			}
		case *events.AuctionExpired:
			m.auctionsRemoved.WithLabelValues(e.Type.String(), expiredLabel).Inc()
			m.activeAuctions.Dec()
		case *events.AuctionDeleted:
			m.auctionsRemoved.WithLabelValues(e.Type.String(), deletedLabel).Inc()
			m.activeAuctions.Dec()
		case *events.InterestAccrued:
			m.interest.WithLabelValues(e.Asset.String()).Add(float64(e.Interest))
		case *events.BadDebtCovered:
			m.badDebt.WithLabelValues(e.Asset.String()).Add(float64(e.Amount))
		}
	}
}

func (m *metrics) MarkBlock(height uint64, numTxs int) {
	m.height.Set(float64(height))
	m.blockTxs.Observe(float64(numTxs))
}

func (m *metrics) SetMempoolSize(n int) {
	m.mempool.Set(float64(n))
}

// SetActiveAuctions seeds the auction gauge from state on startup.
func SetActiveAuctions(m Metrics, n int) {
	if impl, ok := m.(*metrics); ok {
		impl.activeAuctions.Set(float64(n))
	}
}
