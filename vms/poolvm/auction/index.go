// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

const indexDegree = 16

type indexItem struct {
	createdAt uint64
	key       Key
}

func lessItem(a, b indexItem) bool {
	if a.createdAt != b.createdAt {
		return a.createdAt < b.createdAt
	}
	if c := bytes.Compare(a.key.User[:], b.key.User[:]); c != 0 {
		return c < 0
	}
	return a.key.Type < b.key.Type
}

// Index orders live auctions by creation time so listing and expiry scans
// do not walk every user. It mirrors committed state and is rebuilt from
// the database on startup.
type Index struct {
	mu    sync.RWMutex
	tree  *btree.BTreeG[indexItem]
	byKey map[Key]uint64
}

func NewIndex() *Index {
	return &Index{
		tree:  btree.NewG(indexDegree, lessItem),
		byKey: make(map[Key]uint64),
	}
}

// Put records an auction, replacing any older entry for the same key.
func (i *Index) Put(key Key, createdAt uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if old, ok := i.byKey[key]; ok {
		i.tree.Delete(indexItem{createdAt: old, key: key})
	}
	i.byKey[key] = createdAt
	i.tree.ReplaceOrInsert(indexItem{createdAt: createdAt, key: key})
}

// Delete removes the auction for key if present.
func (i *Index) Delete(key Key) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if old, ok := i.byKey[key]; ok {
		i.tree.Delete(indexItem{createdAt: old, key: key})
		delete(i.byKey, key)
	}
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tree.Len()
}

// Keys returns up to limit keys, oldest first. A zero limit returns all.
func (i *Index) Keys(limit int) []Key {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := make([]Key, 0, i.tree.Len())
	i.tree.Ascend(func(item indexItem) bool {
		keys = append(keys, item.key)
		return limit == 0 || len(keys) < limit
	})
	return keys
}

// CreatedBefore returns the keys of auctions created strictly before
// cutoff, oldest first. With cutoff = now - window these are the expired
// auctions.
func (i *Index) CreatedBefore(cutoff uint64) []Key {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var keys []Key
	i.tree.AscendLessThan(indexItem{createdAt: cutoff}, func(item indexItem) bool {
		keys = append(keys, item.key)
		return true
	})
	return keys
}
