// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const CodecVersion = 0

var Codec codec.Manager

func init() {
	Codec = codec.NewManager(math.MaxInt)
	lc := linearcodec.NewDefault()

	// Registration order fixes the type IDs on the wire. Append only.
	err := errors.Join(
		lc.RegisterType(&SupplyTx{}),
		lc.RegisterType(&WithdrawTx{}),
		lc.RegisterType(&BorrowTx{}),
		lc.RegisterType(&RepayTx{}),
		lc.RegisterType(&NewAuctionTx{}),
		lc.RegisterType(&FillAuctionTx{}),
		lc.RegisterType(&DeleteAuctionTx{}),
		lc.RegisterType(&SetPriceTx{}),
		lc.RegisterType(&SetStatusTx{}),
		lc.RegisterType(&FundBackstopTx{}),
		Codec.RegisterCodec(CodecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
