// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool holds issued transactions until a block includes them.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
	"github.com/luxfi/ids"

	"github.com/luxfi/lendvm/vms/poolvm/txs"
)

const degree = 16

var (
	ErrDuplicateTx = errors.New("duplicate tx")
	ErrMempoolFull = errors.New("mempool is full")
)

type entry struct {
	seq uint64
	tx  *txs.Tx
}

func lessEntry(a, b entry) bool {
	return a.seq < b.seq
}

// Mempool is a bounded FIFO of transactions keyed by ID.
type Mempool struct {
	mu      sync.Mutex
	maxSize int
	nextSeq uint64
	queue   *btree.BTreeG[entry]
	byID    map[ids.ID]uint64
}

func New(maxSize int) *Mempool {
	return &Mempool{
		maxSize: maxSize,
		queue:   btree.NewG(degree, lessEntry),
		byID:    make(map[ids.ID]uint64),
	}
}

// Add queues tx behind every transaction already waiting.
func (m *Mempool) Add(tx *txs.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txID := tx.ID()
	if _, ok := m.byID[txID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTx, txID)
	}
	if m.queue.Len() >= m.maxSize {
		return fmt.Errorf("%w: %d txs", ErrMempoolFull, m.maxSize)
	}

	seq := m.nextSeq
	m.nextSeq++
	m.byID[txID] = seq
	m.queue.ReplaceOrInsert(entry{seq: seq, tx: tx})
	return nil
}

func (m *Mempool) Has(txID ids.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[txID]
	return ok
}

// Peek returns up to n transactions in arrival order without removing
// them.
func (m *Mempool) Peek(n int) []*txs.Tx {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*txs.Tx, 0, min(n, m.queue.Len()))
	m.queue.Ascend(func(e entry) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, e.tx)
		return true
	})
	return out
}

// Remove drops the given transactions if present.
func (m *Mempool) Remove(txIDs ...ids.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, txID := range txIDs {
		seq, ok := m.byID[txID]
		if !ok {
			continue
		}
		m.queue.Delete(entry{seq: seq})
		delete(m.byID, txID)
	}
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}
