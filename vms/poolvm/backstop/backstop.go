// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package backstop is the pool's view of the insurance fund that absorbs
// bad debt and collects interest revenue.
package backstop

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	safemath "github.com/luxfi/lendvm/utils/math"
)

//go:generate mockgen -package=backstopmock -destination=backstopmock/backstop.go -mock_names=Backstop=Backstop . Backstop

var (
	ErrInsufficientFunds = errors.New("insufficient backstop funds")
	ErrInvalidAmount     = errors.New("invalid amount")

	_ Backstop = (*Fund)(nil)
)

// Backstop is called by the pool during auction fills.
type Backstop interface {
	// Draw removes amount of asset from the fund. It fails with
	// ErrInsufficientFunds rather than partially paying.
	Draw(asset ids.ID, amount uint64) error
	// DepositFee credits protocol revenue to the fund.
	DepositFee(asset ids.ID, amount uint64) error
	// Balance returns the fund's holdings of asset.
	Balance(asset ids.ID) (uint64, error)
}

// Fund keeps balances in a database keyed by asset. Sharing the pool's
// versioned database makes its changes commit or roll back with the
// transaction that made them.
type Fund struct {
	db database.Database
}

func NewFund(db database.Database) *Fund {
	return &Fund{db: db}
}

func (f *Fund) Balance(asset ids.ID) (uint64, error) {
	balance, err := database.GetUInt64(f.db, asset[:])
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return balance, err
}

func (f *Fund) Draw(asset ids.ID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	balance, err := f.Balance(asset)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientFunds, asset, balance, amount)
	}
	return database.PutUInt64(f.db, asset[:], balance-amount)
}

func (f *Fund) DepositFee(asset ids.ID, amount uint64) error {
	return f.Deposit(asset, amount)
}

// Deposit adds first-loss capital to the fund.
func (f *Fund) Deposit(asset ids.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := f.Balance(asset)
	if err != nil {
		return err
	}
	balance, err = safemath.Add(balance, amount)
	if err != nil {
		return err
	}
	return database.PutUInt64(f.db, asset[:], balance)
}
