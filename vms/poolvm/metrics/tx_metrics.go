// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import "github.com/luxfi/lendvm/vms/poolvm/txs"

var _ txs.Visitor = (*txNamer)(nil)

// txNamer labels a transaction by type. It is only used under the VM lock.
type txNamer struct {
	name string
}

func (n *txNamer) SupplyTx(*txs.SupplyTx) error {
	n.name = "supply"
	return nil
}

func (n *txNamer) WithdrawTx(*txs.WithdrawTx) error {
	n.name = "withdraw"
	return nil
}

func (n *txNamer) BorrowTx(*txs.BorrowTx) error {
	n.name = "borrow"
	return nil
}

func (n *txNamer) RepayTx(*txs.RepayTx) error {
	n.name = "repay"
	return nil
}

func (n *txNamer) NewAuctionTx(*txs.NewAuctionTx) error {
	n.name = "new_auction"
	return nil
}

func (n *txNamer) FillAuctionTx(*txs.FillAuctionTx) error {
	n.name = "fill_auction"
	return nil
}

func (n *txNamer) DeleteAuctionTx(*txs.DeleteAuctionTx) error {
	n.name = "delete_auction"
	return nil
}

func (n *txNamer) SetPriceTx(*txs.SetPriceTx) error {
	n.name = "set_price"
	return nil
}

func (n *txNamer) SetStatusTx(*txs.SetStatusTx) error {
	n.name = "set_status"
	return nil
}

func (n *txNamer) FundBackstopTx(*txs.FundBackstopTx) error {
	n.name = "fund_backstop"
	return nil
}
