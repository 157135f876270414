// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txs defines the transactions the pool VM executes.
package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
)

var (
	ErrNilTx              = errors.New("nil tx")
	ErrEmptySender        = errors.New("empty sender")
	ErrEmptyAsset         = errors.New("empty asset")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidAuctionType = errors.New("invalid auction type")
	ErrInvalidPct         = errors.New("invalid fill percentage")
	ErrNoPrices           = errors.New("no prices")
	ErrDuplicateAsset     = errors.New("duplicate asset")
	ErrInvalidStatus      = errors.New("invalid status")
)

// UnsignedTx is the body of a transaction.
type UnsignedTx interface {
	// Origin is the address the transaction acts for. The host is
	// responsible for authenticating it.
	Origin() ids.ShortID
	// Verify performs stateless checks.
	Verify() error
	Visit(Visitor) error
}

// Tx is a transaction with its cached identity.
type Tx struct {
	Unsigned UnsignedTx `serialize:"true" json:"unsignedTx"`

	id    ids.ID
	bytes []byte
}

// NewTx serializes unsigned and returns the transaction.
func NewTx(unsigned UnsignedTx) (*Tx, error) {
	tx := &Tx{Unsigned: unsigned}
	bytes, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal tx: %w", err)
	}
	tx.setBytes(bytes)
	return tx, nil
}

// Parse decodes a transaction and computes its ID.
func Parse(bytes []byte) (*Tx, error) {
	tx := &Tx{}
	if _, err := Codec.Unmarshal(bytes, tx); err != nil {
		return nil, fmt.Errorf("couldn't parse tx: %w", err)
	}
	tx.setBytes(bytes)
	return tx, nil
}

func (tx *Tx) setBytes(bytes []byte) {
	tx.bytes = bytes
	tx.id = hash.ComputeHash256Array(bytes)
}

func (tx *Tx) ID() ids.ID {
	return tx.id
}

func (tx *Tx) Bytes() []byte {
	return tx.bytes
}

func (tx *Tx) Verify() error {
	if tx == nil || tx.Unsigned == nil {
		return ErrNilTx
	}
	return tx.Unsigned.Verify()
}
