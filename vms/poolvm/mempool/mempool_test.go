// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lendvm/vms/poolvm/txs"
)

func newTx(t *testing.T, memo byte) *txs.Tx {
	tx, err := txs.NewTx(&txs.SupplyTx{
		BaseTx:      txs.BaseTx{Sender: ids.ShortID{1}, Memo: []byte{memo}},
		AssetAmount: txs.AssetAmount{Asset: ids.ID{1}, Amount: 1},
	})
	require.NoError(t, err)
	return tx
}

func TestMempoolOrder(t *testing.T) {
	require := require.New(t)
	m := New(10)

	a, b, c := newTx(t, 1), newTx(t, 2), newTx(t, 3)
	for _, tx := range []*txs.Tx{a, b, c} {
		require.NoError(m.Add(tx))
	}
	require.ErrorIs(m.Add(b), ErrDuplicateTx)
	require.Equal(3, m.Len())
	require.Equal([]*txs.Tx{a, b}, m.Peek(2))

	m.Remove(a.ID(), ids.GenerateTestID())
	require.False(m.Has(a.ID()))
	require.True(m.Has(c.ID()))
	require.Equal([]*txs.Tx{b, c}, m.Peek(10))

	// A removed tx can be issued again and goes to the back.
	require.NoError(m.Add(a))
	require.Equal([]*txs.Tx{b, c, a}, m.Peek(10))
}

func TestMempoolFull(t *testing.T) {
	require := require.New(t)
	m := New(1)

	require.NoError(m.Add(newTx(t, 1)))
	require.ErrorIs(m.Add(newTx(t, 2)), ErrMempoolFull)
	require.Empty(New(0).Peek(5))
}
