// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Visitor executes each transaction type.
type Visitor interface {
	SupplyTx(*SupplyTx) error
	WithdrawTx(*WithdrawTx) error
	BorrowTx(*BorrowTx) error
	RepayTx(*RepayTx) error
	NewAuctionTx(*NewAuctionTx) error
	FillAuctionTx(*FillAuctionTx) error
	DeleteAuctionTx(*DeleteAuctionTx) error
	SetPriceTx(*SetPriceTx) error
	SetStatusTx(*SetStatusTx) error
	FundBackstopTx(*FundBackstopTx) error
}
