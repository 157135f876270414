// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	safemath "github.com/luxfi/lendvm/utils/math"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/backstop"
	"github.com/luxfi/lendvm/vms/poolvm/backstop/backstopmock"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/oracle"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
	"github.com/luxfi/lendvm/vms/poolvm/state"
)

const (
	token       = 10_000_000 // one token with 7 decimals
	genesisTime = 1_000
)

var (
	collateralAsset = ids.GenerateTestID()
	debtAsset       = ids.GenerateTestID()
	backstopToken   = ids.GenerateTestID()

	lender     = ids.GenerateTestShortID()
	borrower   = ids.GenerateTestShortID()
	liquidator = ids.GenerateTestShortID()
)

// zeroCurve charges no interest, keeping indices at 1.0.
func zeroCurve() reserve.RateCurve {
	return reserve.RateCurve{Kink: 8_000_000}
}

func testReserve(index uint32, asset ids.ID, curve reserve.RateCurve) config.Reserve {
	return config.Reserve{
		Asset: asset,
		Config: reserve.Config{
			Index:            index,
			Decimals:         7,
			CollateralFactor: safemath.Scale7,
			LiabilityFactor:  safemath.Scale7,
			MaxUtil:          safemath.Scale7,
			ReserveFee:       1_000_000,
			Enabled:          true,
			Curve:            curve,
		},
	}
}

type fixture struct {
	state    *state.State
	feed     *oracle.Feed
	fund     *backstop.Fund
	recorder *events.Recorder
	pool     *Pool
}

func newFixture(t *testing.T, curve reserve.RateCurve) *fixture {
	return newFixtureWithBackstop(t, curve, nil)
}

// newFixtureWithBackstop lists a collateral and a debt reserve priced at
// 1.0 and funds the backstop. A nil b uses the state's fund.
func newFixtureWithBackstop(t *testing.T, curve reserve.RateCurve, b backstop.Backstop) *fixture {
	return newFixtureWithReserves(t, b,
		testReserve(0, collateralAsset, curve),
		testReserve(1, debtAsset, curve),
	)
}

func newFixtureWithReserves(t *testing.T, b backstop.Backstop, reserves ...config.Reserve) *fixture {
	require := require.New(t)

	cfg := config.DefaultPool()
	cfg.BackstopToken = backstopToken
	cfg.MaxPriceAge = 0
	cfg.Reserves = reserves
	require.NoError(cfg.Validate())

	s, err := state.New(memdb.New(), 4, 16)
	require.NoError(err)
	for _, r := range cfg.Reserves {
		require.NoError(s.AddReserve(r.Asset, r.Config, genesisTime))
	}

	f := &fixture{
		state:    s,
		feed:     oracle.NewFeed(0),
		fund:     backstop.NewFund(s.BackstopDB()),
		recorder: &events.Recorder{},
	}
	require.NoError(f.fund.Deposit(debtAsset, 500*token))
	require.NoError(f.fund.Deposit(backstopToken, 100*token))
	require.NoError(s.Commit())

	for _, asset := range []ids.ID{collateralAsset, debtAsset, backstopToken} {
		require.NoError(f.feed.SetPrice(asset, token, genesisTime))
	}
	if b == nil {
		b = f.fund
	}
	f.pool = New(cfg, s, f.feed, b, f.recorder, log.NewNoOpLogger())
	return f
}

// openBorrow has the lender supply 1000 debt tokens and the borrower supply
// 150 collateral tokens against a 100 token loan.
func (f *fixture) openBorrow(t *testing.T) {
	require := require.New(t)

	_, err := f.pool.Supply(lender, debtAsset, 1_000*token, genesisTime)
	require.NoError(err)
	_, err = f.pool.Supply(borrower, collateralAsset, 150*token, genesisTime)
	require.NoError(err)
	_, err = f.pool.Borrow(borrower, debtAsset, 100*token, genesisTime)
	require.NoError(err)
	require.NoError(f.state.Commit())
	f.recorder.Discard()
}

func (f *fixture) positions(t *testing.T, user ids.ShortID) *positions.Positions {
	p, err := f.pool.Positions(user)
	require.NoError(t, err)
	return p
}

func (f *fixture) reserve(t *testing.T, asset ids.ID) *reserve.Reserve {
	r, err := f.state.GetReserve(asset)
	require.NoError(t, err)
	return r
}

func TestSupplyWithdrawConservesShares(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, reserve.DefaultRateCurve())
	f.openBorrow(t)

	users := []ids.ShortID{lender, ids.GenerateTestShortID(), ids.GenerateTestShortID()}
	now := uint64(genesisTime)
	for i := range 30 {
		now += 3_600
		user := users[i%len(users)]
		amount := uint64(i+1) * 1_234_567
		var err error
		if i%5 == 4 {
			_, err = f.pool.Withdraw(user, debtAsset, amount/2, now)
		} else {
			_, err = f.pool.Supply(user, debtAsset, amount, now)
		}
		require.NoError(err)
		require.NoError(f.state.Commit())
	}

	var total uint64
	for _, user := range users {
		total += f.positions(t, user).Collateral[1]
	}
	require.Equal(f.reserve(t, debtAsset).BSupply, total)
}

func TestBorrowRejectedWhenUnhealthy(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	before := f.reserve(t, debtAsset)
	_, err := f.pool.Borrow(borrower, debtAsset, 51*token, genesisTime)
	require.ErrorIs(err, health.ErrUnderCollateralized)
	f.state.Abort()

	require.Equal(before, f.reserve(t, debtAsset))
	require.Equal(uint64(100*token), f.positions(t, borrower).Liabilities[1])
	require.Empty(f.recorder.Flush())

	// exactly 1.0 is allowed
	_, err = f.pool.Borrow(borrower, debtAsset, 50*token, genesisTime)
	require.NoError(err)
}

func TestBorrowZeroLeavesRatesUnchanged(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, reserve.DefaultRateCurve())
	f.openBorrow(t)

	r := f.reserve(t, debtAsset)
	borrowRate, supplyRate, err := r.Rates()
	require.NoError(err)

	_, err = f.pool.Borrow(borrower, debtAsset, 0, genesisTime)
	require.ErrorIs(err, positions.ErrInvalidAmount)
	f.state.Abort()

	r = f.reserve(t, debtAsset)
	newBorrowRate, newSupplyRate, err := r.Rates()
	require.NoError(err)
	require.Equal(borrowRate, newBorrowRate)
	require.Equal(supplyRate, newSupplyRate)
}

func TestWithdrawRequiresHealthAndLiquidity(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	_, err := f.pool.Withdraw(borrower, collateralAsset, 51*token, genesisTime)
	require.ErrorIs(err, health.ErrUnderCollateralized)
	f.state.Abort()

	change, err := f.pool.Withdraw(borrower, collateralAsset, 50*token, genesisTime)
	require.NoError(err)
	require.Equal(uint64(50*token), change.Amount)
	require.NoError(f.state.Commit())

	// 100 of the lender's 1000 tokens are lent out
	_, err = f.pool.Withdraw(lender, debtAsset, 901*token, genesisTime)
	require.ErrorIs(err, ErrInsufficientLiquidity)
	f.state.Abort()

	_, err = f.pool.Withdraw(lender, debtAsset, 900*token, genesisTime)
	require.NoError(err)
}

func TestMaxUtilBindsBorrowNotWithdraw(t *testing.T) {
	require := require.New(t)
	debt := testReserve(1, debtAsset, zeroCurve())
	debt.Config.MaxUtil = 5_000_000
	f := newFixtureWithReserves(t, nil, testReserve(0, collateralAsset, zeroCurve()), debt)
	f.openBorrow(t)

	// leaves 100 lent out of 150 supplied, above the 50% ceiling
	_, err := f.pool.Withdraw(lender, debtAsset, 850*token, genesisTime)
	require.NoError(err)
	require.NoError(f.state.Commit())

	_, err = f.pool.Borrow(borrower, debtAsset, token, genesisTime)
	require.ErrorIs(err, reserve.ErrUtilizationTooHigh)
	f.state.Abort()
	require.Equal(uint64(100*token), f.positions(t, borrower).Liabilities[1])
}

func TestRepayRefundsExcess(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	change, refund, err := f.pool.Repay(borrower, debtAsset, 120*token, genesisTime)
	require.NoError(err)
	require.Equal(uint64(100*token), change.Amount)
	require.Equal(uint64(20*token), refund)
	require.Empty(f.positions(t, borrower).Liabilities)
	require.Zero(f.reserve(t, debtAsset).DSupply)
}

func TestStatusGating(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	require.ErrorIs(f.pool.SetStatus(state.Status(9), genesisTime), ErrInvalidStatus)

	require.NoError(f.pool.SetStatus(state.OnIce, genesisTime))
	_, err := f.pool.Borrow(borrower, debtAsset, token, genesisTime)
	require.ErrorIs(err, ErrBorrowingDisabled)
	_, err = f.pool.Supply(borrower, collateralAsset, token, genesisTime)
	require.NoError(err)

	require.NoError(f.pool.SetStatus(state.Frozen, genesisTime))
	_, err = f.pool.Supply(borrower, collateralAsset, token, genesisTime)
	require.ErrorIs(err, ErrPoolFrozen)
	_, _, err = f.pool.Repay(borrower, debtAsset, token, genesisTime)
	require.NoError(err)

	status, err := f.pool.Status()
	require.NoError(err)
	require.Equal(state.Frozen, status)
}

func TestMaxPositions(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.pool.cfg.MaxPositions = 2
	f.openBorrow(t)

	_, err := f.pool.Supply(borrower, debtAsset, token, genesisTime)
	require.ErrorIs(err, ErrTooManyPositions)
}

func TestUnknownAsset(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())

	_, err := f.pool.Supply(lender, ids.GenerateTestID(), token, genesisTime)
	require.ErrorIs(err, ErrUnknownAsset)
}

func TestStalePriceBlocksBorrow(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.pool.evaluator.MaxPriceAge = 60
	f.openBorrow(t)

	_, err := f.pool.Borrow(borrower, debtAsset, token, genesisTime+61)
	require.ErrorIs(err, oracle.ErrStalePrice)
}

// dropCollateralPrice halves the collateral price, leaving the borrower
// at a health of 0.75.
func (f *fixture) dropCollateralPrice(t *testing.T, now uint64) {
	require := require.New(t)
	require.NoError(f.feed.SetPrice(collateralAsset, token/2, now))

	acc, class, err := f.pool.Account(borrower, now)
	require.NoError(err)
	require.Equal(uint64(7_500_000), acc.Ratio())
	require.Equal(health.Liquidatable, class)
}

func TestLiquidationAuction(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	_, err := f.pool.NewLiquidationAuction(borrower, genesisTime)
	require.ErrorIs(err, ErrNotLiquidatable)
	f.state.Abort()

	const created = 2_000
	f.dropCollateralPrice(t, created)

	a, err := f.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	// 75 of collateral cannot restore 1.1 health, so all of it is offered
	// for the debt it covers at the 10% ceiling discount.
	require.Equal([]auction.Entry{{Asset: collateralAsset, Amount: 150 * token}}, a.Offered)
	require.Equal([]auction.Entry{{Asset: debtAsset, Amount: 681_818_100}}, a.Requested)
	require.NoError(f.state.Commit())

	_, err = f.pool.NewLiquidationAuction(borrower, created+1)
	require.ErrorIs(err, ErrAuctionExists)
	f.state.Abort()

	key := a.Key()
	_, err = f.pool.FillAuction(borrower, key, safemath.Scale7, created)
	require.ErrorIs(err, ErrInvalidFiller)
	f.state.Abort()

	fill, err := f.pool.FillAuction(liquidator, key, safemath.Scale7, created)
	require.NoError(err)
	require.True(fill.Done)
	require.Equal(uint64(100_000), fill.Discount)
	require.NoError(f.state.Commit())

	// (1 + 1%) / (1 + 10%) of the collateral goes to the liquidator; the
	// rest stays with the borrower.
	require.Equal(uint64(1_377_272_700), f.positions(t, liquidator).Collateral[0])
	user := f.positions(t, borrower)
	require.Equal(uint64(122_727_300), user.Collateral[0])
	require.Equal(uint64(100*token-681_818_100), user.Liabilities[1])

	_, err = f.pool.Auction(key)
	require.ErrorIs(err, ErrAuctionNotFound)

	var filled *events.AuctionFilled
	for _, e := range f.recorder.Flush() {
		if e, ok := e.(*events.AuctionFilled); ok {
			filled = e
		}
	}
	require.NotNil(filled)
	require.Equal([]auction.Entry{{Asset: debtAsset, Amount: 681_818_100}}, filled.Paid)
}

func TestLiquidationFillRejectedAfterRepay(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	const created = 2_000
	f.dropCollateralPrice(t, created)
	a, err := f.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	require.NoError(f.state.Commit())

	// the borrower clears the debt while the auction is live
	_, _, err = f.pool.Repay(borrower, debtAsset, 100*token, created)
	require.NoError(err)
	require.NoError(f.state.Commit())

	_, err = f.pool.FillAuction(liquidator, a.Key(), safemath.Scale7, created)
	require.ErrorIs(err, ErrStaleAuction)
	require.ErrorIs(err, positions.ErrInsufficientShares)
	f.state.Abort()

	require.Equal(uint64(150*token), f.positions(t, borrower).Collateral[0])
	require.Empty(f.positions(t, liquidator).Collateral)
	stored, err := f.pool.Auction(a.Key())
	require.NoError(err)
	require.Zero(stored.FilledPct)

	// a partial repayment still allows a fill within the remaining debt
	g := newFixture(t, zeroCurve())
	g.openBorrow(t)
	g.dropCollateralPrice(t, created)
	b, err := g.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	require.NoError(g.state.Commit())

	_, _, err = g.pool.Repay(borrower, debtAsset, 50*token, created)
	require.NoError(err)
	require.NoError(g.state.Commit())

	_, err = g.pool.FillAuction(liquidator, b.Key(), safemath.Scale7, created)
	require.ErrorIs(err, ErrStaleAuction)
	g.state.Abort()
	_, err = g.pool.FillAuction(liquidator, b.Key(), 5_000_000, created)
	require.NoError(err)
	require.NoError(g.state.Commit())
}

func liquidateAll(t *testing.T, f *fixture, pcts ...uint64) {
	require := require.New(t)

	const created = 2_000
	f.dropCollateralPrice(t, created)
	a, err := f.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	require.NoError(f.state.Commit())

	for _, pct := range pcts {
		_, err := f.pool.FillAuction(liquidator, a.Key(), pct, created+1_800)
		require.NoError(err)
		require.NoError(f.state.Commit())
	}
}

func TestPartialFillsCompose(t *testing.T) {
	require := require.New(t)

	whole := newFixture(t, zeroCurve())
	whole.openBorrow(t)
	liquidateAll(t, whole, safemath.Scale7)

	split := newFixture(t, zeroCurve())
	split.openBorrow(t)
	liquidateAll(t, split, 4_000_000, 6_000_000)

	for _, user := range []ids.ShortID{borrower, liquidator} {
		require.Equal(whole.positions(t, user), split.positions(t, user))
	}
	require.Equal(whole.reserve(t, debtAsset), split.reserve(t, debtAsset))
	require.Equal(whole.reserve(t, collateralAsset), split.reserve(t, collateralAsset))

	// at the ceiling discount the whole offered basket is awarded
	require.Equal(uint64(150*token), whole.positions(t, liquidator).Collateral[0])
	require.Empty(whole.positions(t, borrower).Collateral)
}

func TestFillRejectsOversizedAndExpired(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	const created = 2_000
	f.dropCollateralPrice(t, created)
	a, err := f.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	require.NoError(f.state.Commit())
	key := a.Key()

	_, err = f.pool.FillAuction(liquidator, key, 6_000_000, created)
	require.NoError(err)
	require.NoError(f.state.Commit())

	_, err = f.pool.FillAuction(liquidator, key, 6_000_000, created)
	require.ErrorIs(err, auction.ErrInvalidAmount)
	f.state.Abort()

	window := a.Schedule.Window
	_, err = f.pool.FillAuction(liquidator, key, 1_000_000, created+window)
	require.NoError(err)
	require.NoError(f.state.Commit())

	_, err = f.pool.FillAuction(liquidator, key, 1_000_000, created+window+1)
	require.ErrorIs(err, ErrAuctionNotFound)
	require.ErrorIs(err, auction.ErrExpired)
	f.state.Abort()

	_, err = f.pool.FillAuction(liquidator, auction.Key{User: lender}, safemath.Scale7, created)
	require.ErrorIs(err, ErrAuctionNotFound)
}

func TestExpiredAuctionSupersededAndDeleted(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	const created = 2_000
	f.dropCollateralPrice(t, created)
	a, err := f.pool.NewLiquidationAuction(borrower, created)
	require.NoError(err)
	require.NoError(f.state.Commit())
	f.recorder.Discard()

	require.ErrorIs(f.pool.DeleteStaleAuction(a.Key(), created+a.Schedule.Window), ErrAuctionNotExpired)
	f.state.Abort()

	later := created + a.Schedule.Window + 1
	require.NoError(f.feed.SetPrice(collateralAsset, token/2, later))
	b, err := f.pool.NewLiquidationAuction(borrower, later)
	require.NoError(err)
	require.Equal(uint64(later), b.CreatedAt)
	require.NoError(f.state.Commit())

	evts := f.recorder.Flush()
	require.IsType(&events.AuctionExpired{}, evts[0])
	require.IsType(&events.AuctionCreated{}, evts[len(evts)-1])

	require.NoError(f.pool.DeleteStaleAuction(b.Key(), later+b.Schedule.Window+1))
	require.NoError(f.state.Commit())
	_, err = f.pool.Auction(b.Key())
	require.ErrorIs(err, ErrAuctionNotFound)
	require.ErrorIs(f.pool.DeleteStaleAuction(b.Key(), later), ErrAuctionNotFound)
}

func TestBadDebtAuction(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)

	_, err := f.pool.NewBadDebtAuction(borrower, genesisTime)
	require.ErrorIs(err, ErrNoBadDebt)
	f.state.Abort()

	liquidateAll(t, f, safemath.Scale7)
	const now = 4_000
	const remaining = 100*token - 681_818_100

	_, class, err := f.pool.Account(borrower, now)
	require.NoError(err)
	require.Equal(health.BadDebt, class)

	a, err := f.pool.NewBadDebtAuction(borrower, now)
	require.NoError(err)
	require.Equal([]auction.Entry{{Asset: debtAsset, Amount: remaining}}, a.Requested)
	require.Empty(a.Offered)
	require.NoError(f.state.Commit())

	debtBefore, err := f.fund.Balance(debtAsset)
	require.NoError(err)
	tokensBefore, err := f.fund.Balance(backstopToken)
	require.NoError(err)
	liabilityBefore := f.reserve(t, debtAsset).DSupply

	fill, err := f.pool.FillAuction(liquidator, a.Key(), safemath.Scale7, now+1_800)
	require.NoError(err)
	require.True(fill.Done)
	require.Empty(fill.Awarded)
	require.NoError(f.state.Commit())

	// the backstop loses exactly the debt it absorbs
	debtAfter, err := f.fund.Balance(debtAsset)
	require.NoError(err)
	require.Equal(uint64(remaining), debtBefore-debtAfter)
	require.Equal(liabilityBefore-f.reserve(t, debtAsset).DSupply, debtBefore-debtAfter)
	require.Empty(f.positions(t, borrower).Liabilities)
	require.Empty(f.positions(t, liquidator).Collateral)

	tokensAfter, err := f.fund.Balance(backstopToken)
	require.NoError(err)
	require.Equal(tokensBefore, tokensAfter)
	require.Zero(f.reserve(t, debtAsset).DSupply)
}

func TestBadDebtFillRejectedAfterRepay(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, zeroCurve())
	f.openBorrow(t)
	liquidateAll(t, f, safemath.Scale7)

	const now = 4_000
	a, err := f.pool.NewBadDebtAuction(borrower, now)
	require.NoError(err)
	require.NoError(f.state.Commit())

	_, _, err = f.pool.Repay(borrower, debtAsset, 100*token, now)
	require.NoError(err)
	require.NoError(f.state.Commit())
	require.Empty(f.positions(t, borrower).Liabilities)

	debtBefore, err := f.fund.Balance(debtAsset)
	require.NoError(err)

	_, err = f.pool.FillAuction(liquidator, a.Key(), safemath.Scale7, now)
	require.ErrorIs(err, ErrStaleAuction)
	require.ErrorIs(err, positions.ErrInsufficientShares)
	f.state.Abort()

	debtAfter, err := f.fund.Balance(debtAsset)
	require.NoError(err)
	require.Equal(debtBefore, debtAfter)
}

func TestBadDebtDrawFailureRejectsFill(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	b := backstopmock.NewBackstop(ctrl)
	f := newFixtureWithBackstop(t, zeroCurve(), b)
	f.openBorrow(t)
	liquidateAll(t, f, safemath.Scale7)

	const now = 4_000
	a, err := f.pool.NewBadDebtAuction(borrower, now)
	require.NoError(err)
	require.NoError(f.state.Commit())

	const remaining = 100*token - 681_818_100
	b.EXPECT().Draw(debtAsset, uint64(remaining)).Return(backstop.ErrInsufficientFunds)

	_, err = f.pool.FillAuction(liquidator, a.Key(), safemath.Scale7, now)
	require.ErrorIs(err, backstop.ErrInsufficientFunds)
	f.state.Abort()

	stored, err := f.pool.Auction(a.Key())
	require.NoError(err)
	require.Zero(stored.FilledPct)
	require.Equal(uint64(remaining), f.positions(t, borrower).Liabilities[1])
}

func TestInterestAuction(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, reserve.DefaultRateCurve())
	f.openBorrow(t)

	_, err := f.pool.NewInterestAuction([]ids.ID{debtAsset}, genesisTime)
	require.ErrorIs(err, ErrNoCredit)
	f.state.Abort()

	now := uint64(genesisTime + reserve.SecondsPerYear)
	_, err = f.pool.NewInterestAuction([]ids.ID{debtAsset, debtAsset}, now)
	require.ErrorIs(err, ErrDuplicateAsset)
	f.state.Abort()

	a, err := f.pool.NewInterestAuction([]ids.ID{collateralAsset, debtAsset}, now)
	require.NoError(err)
	require.Len(a.Offered, 1)
	require.Equal(debtAsset, a.Offered[0].Asset)
	credit := a.Offered[0].Amount
	require.Positive(credit)
	require.Equal(credit, f.reserve(t, debtAsset).BackstopCredit)
	require.Equal(backstopToken, a.Requested[0].Asset)
	require.NoError(f.state.Commit())

	tokensBefore, err := f.fund.Balance(backstopToken)
	require.NoError(err)

	fill, err := f.pool.FillAuction(liquidator, a.Key(), safemath.Scale7, now)
	require.NoError(err)
	require.NoError(f.state.Commit())

	awarded := fill.Awarded[0].Amount
	require.Less(awarded, credit)
	require.Equal(credit-awarded, f.reserve(t, debtAsset).BackstopCredit)

	tokensAfter, err := f.fund.Balance(backstopToken)
	require.NoError(err)
	require.Equal(a.Requested[0].Amount, tokensAfter-tokensBefore)
}

func TestAccrualEmitsInterest(t *testing.T) {
	require := require.New(t)
	f := newFixture(t, reserve.DefaultRateCurve())
	f.openBorrow(t)

	_, err := f.pool.Supply(lender, debtAsset, token, genesisTime+86_400)
	require.NoError(err)

	var accrued *events.InterestAccrued
	for _, e := range f.recorder.Flush() {
		if e, ok := e.(*events.InterestAccrued); ok {
			accrued = e
		}
	}
	require.NotNil(accrued)
	require.Equal(debtAsset, accrued.Asset)
	require.Positive(accrued.Interest)

	// read-only views do not emit
	_, err = f.pool.Reserve(debtAsset, genesisTime+2*86_400)
	require.NoError(err)
	require.Empty(f.recorder.Flush())
}
