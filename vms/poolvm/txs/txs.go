// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"fmt"

	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

var (
	_ UnsignedTx = (*SupplyTx)(nil)
	_ UnsignedTx = (*WithdrawTx)(nil)
	_ UnsignedTx = (*BorrowTx)(nil)
	_ UnsignedTx = (*RepayTx)(nil)
	_ UnsignedTx = (*NewAuctionTx)(nil)
	_ UnsignedTx = (*FillAuctionTx)(nil)
	_ UnsignedTx = (*DeleteAuctionTx)(nil)
	_ UnsignedTx = (*SetPriceTx)(nil)
	_ UnsignedTx = (*SetStatusTx)(nil)
	_ UnsignedTx = (*FundBackstopTx)(nil)
)

// BaseTx carries the fields every transaction has.
type BaseTx struct {
	Sender ids.ShortID `serialize:"true" json:"sender"`
	// Memo distinguishes otherwise identical transactions.
	Memo []byte `serialize:"true" json:"memo"`
}

func (tx *BaseTx) Origin() ids.ShortID {
	return tx.Sender
}

func (tx *BaseTx) Verify() error {
	if tx.Sender == ids.ShortEmpty {
		return ErrEmptySender
	}
	return nil
}

// AssetAmount names an amount of one asset.
type AssetAmount struct {
	Asset  ids.ID `serialize:"true" json:"asset"`
	Amount uint64 `serialize:"true" json:"amount"`
}

func (a AssetAmount) Verify() error {
	switch {
	case a.Asset == ids.Empty:
		return ErrEmptyAsset
	case a.Amount == 0:
		return fmt.Errorf("%w: zero %s", ErrInvalidAmount, a.Asset)
	}
	return nil
}

// SupplyTx deposits collateral.
type SupplyTx struct {
	BaseTx      `serialize:"true"`
	AssetAmount `serialize:"true"`
}

func (tx *SupplyTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	return tx.AssetAmount.Verify()
}

func (tx *SupplyTx) Visit(v Visitor) error { return v.SupplyTx(tx) }

// WithdrawTx removes collateral.
type WithdrawTx struct {
	BaseTx      `serialize:"true"`
	AssetAmount `serialize:"true"`
}

func (tx *WithdrawTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	return tx.AssetAmount.Verify()
}

func (tx *WithdrawTx) Visit(v Visitor) error { return v.WithdrawTx(tx) }

// BorrowTx takes on debt.
type BorrowTx struct {
	BaseTx      `serialize:"true"`
	AssetAmount `serialize:"true"`
}

func (tx *BorrowTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	return tx.AssetAmount.Verify()
}

func (tx *BorrowTx) Visit(v Visitor) error { return v.BorrowTx(tx) }

// RepayTx pays down debt.
type RepayTx struct {
	BaseTx      `serialize:"true"`
	AssetAmount `serialize:"true"`
}

func (tx *RepayTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	return tx.AssetAmount.Verify()
}

func (tx *RepayTx) Visit(v Visitor) error { return v.RepayTx(tx) }

// NewAuctionTx starts an auction. User is ignored for interest auctions,
// which auction the backstop credit of Assets.
type NewAuctionTx struct {
	BaseTx `serialize:"true"`
	User   ids.ShortID  `serialize:"true" json:"user"`
	Type   auction.Type `serialize:"true" json:"type"`
	Assets []ids.ID     `serialize:"true" json:"assets"`
}

func (tx *NewAuctionTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAuctionType, tx.Type)
	}
	if tx.Type != auction.Interest {
		return nil
	}
	if len(tx.Assets) == 0 {
		return fmt.Errorf("%w: interest auction without assets", ErrEmptyAsset)
	}
	return verifyUnique(tx.Assets)
}

func (tx *NewAuctionTx) Visit(v Visitor) error { return v.NewAuctionTx(tx) }

// Key is the auction the transaction creates.
func (tx *NewAuctionTx) Key() auction.Key {
	return auctionKey(tx.User, tx.Type)
}

// FillAuctionTx fills Pct (7 decimals) of an auction's initial baskets.
type FillAuctionTx struct {
	BaseTx `serialize:"true"`
	User   ids.ShortID  `serialize:"true" json:"user"`
	Type   auction.Type `serialize:"true" json:"type"`
	Pct    uint64       `serialize:"true" json:"pct"`
}

func (tx *FillAuctionTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAuctionType, tx.Type)
	}
	if tx.Pct == 0 || tx.Pct > safemath.Scale7 {
		return fmt.Errorf("%w: %d", ErrInvalidPct, tx.Pct)
	}
	return nil
}

func (tx *FillAuctionTx) Visit(v Visitor) error { return v.FillAuctionTx(tx) }

func (tx *FillAuctionTx) Key() auction.Key {
	return auctionKey(tx.User, tx.Type)
}

// DeleteAuctionTx removes an expired auction.
type DeleteAuctionTx struct {
	BaseTx `serialize:"true"`
	User   ids.ShortID  `serialize:"true" json:"user"`
	Type   auction.Type `serialize:"true" json:"type"`
}

func (tx *DeleteAuctionTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidAuctionType, tx.Type)
	}
	return nil
}

func (tx *DeleteAuctionTx) Visit(v Visitor) error { return v.DeleteAuctionTx(tx) }

func (tx *DeleteAuctionTx) Key() auction.Key {
	return auctionKey(tx.User, tx.Type)
}

// SetPriceTx publishes prices (7 decimals) stamped with the block time.
// Only the pool's oracle may send it.
type SetPriceTx struct {
	BaseTx `serialize:"true"`
	Prices []AssetAmount `serialize:"true" json:"prices"`
}

func (tx *SetPriceTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	if len(tx.Prices) == 0 {
		return ErrNoPrices
	}
	assets := make([]ids.ID, len(tx.Prices))
	for i, p := range tx.Prices {
		if err := p.Verify(); err != nil {
			return err
		}
		assets[i] = p.Asset
	}
	return verifyUnique(assets)
}

func (tx *SetPriceTx) Visit(v Visitor) error { return v.SetPriceTx(tx) }

// SetStatusTx changes the pool status. Only the pool's admin may send it.
type SetStatusTx struct {
	BaseTx `serialize:"true"`
	Status state.Status `serialize:"true" json:"status"`
}

func (tx *SetStatusTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	if !tx.Status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, tx.Status)
	}
	return nil
}

func (tx *SetStatusTx) Visit(v Visitor) error { return v.SetStatusTx(tx) }

// FundBackstopTx deposits first-loss capital into the backstop.
type FundBackstopTx struct {
	BaseTx      `serialize:"true"`
	AssetAmount `serialize:"true"`
}

func (tx *FundBackstopTx) Verify() error {
	if err := tx.BaseTx.Verify(); err != nil {
		return err
	}
	return tx.AssetAmount.Verify()
}

func (tx *FundBackstopTx) Visit(v Visitor) error { return v.FundBackstopTx(tx) }

func auctionKey(user ids.ShortID, typ auction.Type) auction.Key {
	if typ == auction.Interest {
		user = ids.ShortEmpty
	}
	return auction.Key{User: user, Type: typ}
}

func verifyUnique(assets []ids.ID) error {
	seen := make(map[ids.ID]struct{}, len(assets))
	for _, asset := range assets {
		if asset == ids.Empty {
			return ErrEmptyAsset
		}
		if _, ok := seen[asset]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset)
		}
		seen[asset] = struct{}{}
	}
	return nil
}
