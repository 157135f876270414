// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the records the pool emits for off-chain
// reconciliation.
package events

import (
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lendvm/vms/poolvm/auction"
)

// Kind names an event.
type Kind string

const (
	KindSupply          Kind = "supply"
	KindWithdraw        Kind = "withdraw"
	KindBorrow          Kind = "borrow"
	KindRepay           Kind = "repay"
	KindInterestAccrued Kind = "interest_accrued"
	KindAuctionCreated  Kind = "auction_created"
	KindAuctionFilled   Kind = "auction_filled"
	KindAuctionExpired  Kind = "auction_expired"
	KindAuctionDeleted  Kind = "auction_deleted"
	KindBadDebt         Kind = "bad_debt"
	KindStatus          Kind = "status"
)

// Event is implemented by every emitted record.
type Event interface {
	Kind() Kind
}

// Position is a supply, withdraw, borrow or repay.
type Position struct {
	Action Kind        `json:"action"`
	User   ids.ShortID `json:"user"`
	Asset  ids.ID      `json:"asset"`
	Amount uint64      `json:"amount"`
	// Shares minted or burned.
	Shares uint64 `json:"shares"`
	// Balance is the user's resulting share balance.
	Balance uint64 `json:"balance"`
	Time    uint64 `json:"time"`
}

func (e *Position) Kind() Kind { return e.Action }

// InterestAccrued reports interest charged to a reserve since its previous
// accrual.
type InterestAccrued struct {
	Asset    ids.ID `json:"asset"`
	Interest uint64 `json:"interest"`
	Credit   uint64 `json:"credit"`
	BRate    uint64 `json:"bRate"`
	DRate    uint64 `json:"dRate"`
	Time     uint64 `json:"time"`
}

func (*InterestAccrued) Kind() Kind { return KindInterestAccrued }

// AuctionCreated records a new auction and its baskets.
type AuctionCreated struct {
	User      ids.ShortID     `json:"user"`
	Type      auction.Type    `json:"type"`
	Offered   []auction.Entry `json:"offered"`
	Requested []auction.Entry `json:"requested"`
	Time      uint64          `json:"time"`
}

func (*AuctionCreated) Kind() Kind { return KindAuctionCreated }

// AuctionFilled records one fill.
type AuctionFilled struct {
	User      ids.ShortID     `json:"user"`
	Type      auction.Type    `json:"type"`
	Filler    ids.ShortID     `json:"filler"`
	Pct       uint64          `json:"pct"`
	Discount  uint64          `json:"discount"`
	Awarded   []auction.Entry `json:"awarded"`
	Paid      []auction.Entry `json:"paid"`
	Done      bool            `json:"done"`
	CreatedAt uint64          `json:"createdAt"`
	Time      uint64          `json:"time"`
}

func (*AuctionFilled) Kind() Kind { return KindAuctionFilled }

// AuctionExpired records an expired auction removed when superseded.
type AuctionExpired struct {
	User      ids.ShortID  `json:"user"`
	Type      auction.Type `json:"type"`
	CreatedAt uint64       `json:"createdAt"`
	Time      uint64       `json:"time"`
}

func (*AuctionExpired) Kind() Kind { return KindAuctionExpired }

// AuctionDeleted records an expired auction removed on request.
type AuctionDeleted struct {
	User      ids.ShortID  `json:"user"`
	Type      auction.Type `json:"type"`
	CreatedAt uint64       `json:"createdAt"`
	Time      uint64       `json:"time"`
}

func (*AuctionDeleted) Kind() Kind { return KindAuctionDeleted }

// BadDebtCovered records debt the backstop absorbed.
type BadDebtCovered struct {
	User   ids.ShortID `json:"user"`
	Asset  ids.ID      `json:"asset"`
	Amount uint64      `json:"amount"`
	Shares uint64      `json:"shares"`
	Time   uint64      `json:"time"`
}

func (*BadDebtCovered) Kind() Kind { return KindBadDebt }

// StatusChanged records a pool status update.
type StatusChanged struct {
	Status uint8  `json:"status"`
	Time   uint64 `json:"time"`
}

func (*StatusChanged) Kind() Kind { return KindStatus }

// Emitter receives events as the pool produces them.
type Emitter interface {
	Emit(Event)
}

// Recorder buffers events until the surrounding transaction commits.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Flush returns the buffered events and clears the buffer.
func (r *Recorder) Flush() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

// Discard drops the buffered events.
func (r *Recorder) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Log writes events to a logger at debug level.
func Log(logger log.Logger, events []Event) {
	for _, e := range events {
		logger.Debug("pool event",
			log.String("kind", string(e.Kind())),
			log.Reflect("event", e),
		)
	}
}
