// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

func TestParseRoundTrip(t *testing.T) {
	require := require.New(t)

	sender := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()
	base := BaseTx{Sender: sender, Memo: []byte("memo")}
	unsigned := []UnsignedTx{
		&SupplyTx{BaseTx: base, AssetAmount: AssetAmount{Asset: asset, Amount: 10}},
		&BorrowTx{BaseTx: base, AssetAmount: AssetAmount{Asset: asset, Amount: 5}},
		&NewAuctionTx{BaseTx: base, Type: auction.Interest, Assets: []ids.ID{asset}},
		&FillAuctionTx{BaseTx: base, User: ids.GenerateTestShortID(), Pct: 5_000_000},
		&SetPriceTx{BaseTx: base, Prices: []AssetAmount{{Asset: asset, Amount: 10_000_000}}},
		&SetStatusTx{BaseTx: base, Status: state.Frozen},
	}
	for _, u := range unsigned {
		tx, err := NewTx(u)
		require.NoError(err)
		require.NoError(tx.Verify())

		parsed, err := Parse(tx.Bytes())
		require.NoError(err)
		require.Equal(tx.ID(), parsed.ID())
		require.Equal(u, parsed.Unsigned)
		require.Equal(sender, parsed.Unsigned.Origin())
	}
}

func TestDistinctMemoDistinctID(t *testing.T) {
	require := require.New(t)

	body := AssetAmount{Asset: ids.GenerateTestID(), Amount: 1}
	sender := ids.GenerateTestShortID()
	a, err := NewTx(&RepayTx{BaseTx: BaseTx{Sender: sender, Memo: []byte("a")}, AssetAmount: body})
	require.NoError(err)
	b, err := NewTx(&RepayTx{BaseTx: BaseTx{Sender: sender, Memo: []byte("b")}, AssetAmount: body})
	require.NoError(err)
	require.NotEqual(a.ID(), b.ID())
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte{0xff, 0x01})
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	sender := ids.GenerateTestShortID()
	asset := ids.GenerateTestID()
	base := BaseTx{Sender: sender}

	tests := []struct {
		name string
		tx   UnsignedTx
		err  error
	}{
		{
			name: "empty sender",
			tx:   &SupplyTx{AssetAmount: AssetAmount{Asset: asset, Amount: 1}},
			err:  ErrEmptySender,
		},
		{
			name: "empty asset",
			tx:   &WithdrawTx{BaseTx: base, AssetAmount: AssetAmount{Amount: 1}},
			err:  ErrEmptyAsset,
		},
		{
			name: "zero amount",
			tx:   &FundBackstopTx{BaseTx: base, AssetAmount: AssetAmount{Asset: asset}},
			err:  ErrInvalidAmount,
		},
		{
			name: "unknown auction type",
			tx:   &DeleteAuctionTx{BaseTx: base, Type: auction.Type(9)},
			err:  ErrInvalidAuctionType,
		},
		{
			name: "interest auction without assets",
			tx:   &NewAuctionTx{BaseTx: base, Type: auction.Interest},
			err:  ErrEmptyAsset,
		},
		{
			name: "interest auction duplicate asset",
			tx:   &NewAuctionTx{BaseTx: base, Type: auction.Interest, Assets: []ids.ID{asset, asset}},
			err:  ErrDuplicateAsset,
		},
		{
			name: "liquidation auction ignores assets",
			tx:   &NewAuctionTx{BaseTx: base, Type: auction.UserLiquidation, User: ids.GenerateTestShortID()},
		},
		{
			name: "zero fill",
			tx:   &FillAuctionTx{BaseTx: base},
			err:  ErrInvalidPct,
		},
		{
			name: "fill above whole",
			tx:   &FillAuctionTx{BaseTx: base, Pct: 10_000_001},
			err:  ErrInvalidPct,
		},
		{
			name: "no prices",
			tx:   &SetPriceTx{BaseTx: base},
			err:  ErrNoPrices,
		},
		{
			name: "zero price",
			tx:   &SetPriceTx{BaseTx: base, Prices: []AssetAmount{{Asset: asset}}},
			err:  ErrInvalidAmount,
		},
		{
			name: "duplicate price",
			tx: &SetPriceTx{BaseTx: base, Prices: []AssetAmount{
				{Asset: asset, Amount: 1},
				{Asset: asset, Amount: 2},
			}},
			err: ErrDuplicateAsset,
		},
		{
			name: "unknown status",
			tx:   &SetStatusTx{BaseTx: base, Status: state.Status(3)},
			err:  ErrInvalidStatus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.tx.Verify(), tt.err)
		})
	}
}

func TestAuctionKeys(t *testing.T) {
	require := require.New(t)

	user := ids.GenerateTestShortID()
	fill := &FillAuctionTx{User: user, Type: auction.Interest}
	require.Equal(auction.Key{User: ids.ShortEmpty, Type: auction.Interest}, fill.Key())

	del := &DeleteAuctionTx{User: user, Type: auction.BadDebt}
	require.Equal(auction.Key{User: user, Type: auction.BadDebt}, del.Key())
}

func TestNilTx(t *testing.T) {
	var tx *Tx
	require.ErrorIs(t, tx.Verify(), ErrNilTx)
}
