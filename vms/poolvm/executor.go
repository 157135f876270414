// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poolvm

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/pool"
	"github.com/luxfi/lendvm/vms/poolvm/state"
	"github.com/luxfi/lendvm/vms/poolvm/txs"
)

var (
	errUnauthorized = errors.New("sender is not authorized")
	errUnknownAsset = errors.New("asset is neither a reserve nor the backstop token")

	_ txs.Visitor = (*executor)(nil)
)

// priceUpdate is applied to the feed once its transaction commits.
type priceUpdate struct {
	asset ids.ID
	value uint64
}

// executor runs one transaction against the pool at the block time. Pool
// writes land in the state's pending layer; the VM commits or aborts them.
type executor struct {
	vm  *VM
	now uint64

	prices []priceUpdate
}

func (e *executor) SupplyTx(tx *txs.SupplyTx) error {
	_, err := e.vm.pool.Supply(tx.Sender, tx.Asset, tx.Amount, e.now)
	return err
}

func (e *executor) WithdrawTx(tx *txs.WithdrawTx) error {
	_, err := e.vm.pool.Withdraw(tx.Sender, tx.Asset, tx.Amount, e.now)
	return err
}

func (e *executor) BorrowTx(tx *txs.BorrowTx) error {
	_, err := e.vm.pool.Borrow(tx.Sender, tx.Asset, tx.Amount, e.now)
	return err
}

func (e *executor) RepayTx(tx *txs.RepayTx) error {
	_, _, err := e.vm.pool.Repay(tx.Sender, tx.Asset, tx.Amount, e.now)
	return err
}

func (e *executor) NewAuctionTx(tx *txs.NewAuctionTx) error {
	var err error
	switch tx.Type {
	case auction.UserLiquidation:
		_, err = e.vm.pool.NewLiquidationAuction(tx.User, e.now)
	case auction.BadDebt:
		_, err = e.vm.pool.NewBadDebtAuction(tx.User, e.now)
	case auction.Interest:
		_, err = e.vm.pool.NewInterestAuction(tx.Assets, e.now)
	default:
		err = fmt.Errorf("%w: %d", pool.ErrInvalidAuctionType, tx.Type)
	}
	return err
}

func (e *executor) FillAuctionTx(tx *txs.FillAuctionTx) error {
	_, err := e.vm.pool.FillAuction(tx.Sender, tx.Key(), tx.Pct, e.now)
	return err
}

func (e *executor) DeleteAuctionTx(tx *txs.DeleteAuctionTx) error {
	return e.vm.pool.DeleteStaleAuction(tx.Key(), e.now)
}

func (e *executor) SetPriceTx(tx *txs.SetPriceTx) error {
	cfg := e.vm.pool.Config()
	if tx.Sender != cfg.Oracle {
		return fmt.Errorf("%w: %s is not the price authority", errUnauthorized, tx.Sender)
	}
	for _, p := range tx.Prices {
		if err := e.requireKnown(p.Asset); err != nil {
			return err
		}
		err := e.vm.state.PutPrice(p.Asset, state.Price{
			Value:     p.Amount,
			Timestamp: e.now,
		})
		if err != nil {
			return err
		}
		e.prices = append(e.prices, priceUpdate{asset: p.Asset, value: p.Amount})
	}
	return nil
}

func (e *executor) SetStatusTx(tx *txs.SetStatusTx) error {
	if tx.Sender != e.vm.pool.Config().Admin {
		return fmt.Errorf("%w: %s is not the pool admin", errUnauthorized, tx.Sender)
	}
	return e.vm.pool.SetStatus(tx.Status, e.now)
}

func (e *executor) FundBackstopTx(tx *txs.FundBackstopTx) error {
	if err := e.requireKnown(tx.Asset); err != nil {
		return err
	}
	return e.vm.fund.Deposit(tx.Asset, tx.Amount)
}

func (e *executor) requireKnown(asset ids.ID) error {
	if asset == e.vm.pool.Config().BackstopToken || e.vm.pool.Listed(asset) {
		return nil
	}
	return fmt.Errorf("%w: %s", errUnknownAsset, asset)
}
