// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poolvm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/luxfi/lendvm"
	"github.com/luxfi/lendvm/utils/json"
	"github.com/luxfi/lendvm/utils/timer/mockable"
	"github.com/luxfi/lendvm/vms/poolvm/api"
	"github.com/luxfi/lendvm/vms/poolvm/auction"
	"github.com/luxfi/lendvm/vms/poolvm/backstop"
	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/events"
	"github.com/luxfi/lendvm/vms/poolvm/health"
	"github.com/luxfi/lendvm/vms/poolvm/mempool"
	"github.com/luxfi/lendvm/vms/poolvm/metrics"
	"github.com/luxfi/lendvm/vms/poolvm/oracle"
	"github.com/luxfi/lendvm/vms/poolvm/pool"
	"github.com/luxfi/lendvm/vms/poolvm/positions"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
	"github.com/luxfi/lendvm/vms/poolvm/state"
	"github.com/luxfi/lendvm/vms/poolvm/txs"

	utilmetric "github.com/luxfi/lendvm/utils/metric"
)

const (
	// Version of the pool VM.
	Version = "1.0.0"

	tracerName = "github.com/luxfi/lendvm/vms/poolvm"
)

var (
	_ lendvm.VM = (*VM)(nil)
	_ api.VM    = (*VM)(nil)

	errUnknownState        = errors.New("unknown state")
	errNotInitialized      = errors.New("VM not initialized")
	errNotBootstrapped     = errors.New("VM not bootstrapped")
	errShutdown            = errors.New("VM is shutting down")
	errInvalidHeight       = errors.New("invalid block height")
	errTimestampRegression = errors.New("block timestamp precedes last accepted block")
	errTooManyTxs          = errors.New("too many transactions in block")
)

// VM runs a single lending pool. All state transitions happen inside
// ProcessBlock: transactions execute in block order, each committed or
// rolled back on its own, so every node produces the same state from the
// same blocks. The VM starts no goroutines.
type VM struct {
	config.Config

	log    log.Logger
	lock   sync.RWMutex
	clock  mockable.Clock
	tracer trace.Tracer

	chainID ids.ID

	state    *state.State
	pool     *pool.Pool
	feed     *oracle.Feed
	fund     *backstop.Fund
	recorder *events.Recorder
	auctions *auction.Index
	mempool  *mempool.Mempool

	metrics       metrics.Metrics
	apiMetrics    utilmetric.APIInterceptor
	blockDuration utilmetric.Averager

	toEngine chan<- lendvm.Message

	// last accepted block
	height    uint64
	timestamp uint64

	initialized  bool
	bootstrapped bool
	shutdown     bool
}

// New returns an uninitialized VM with the given runtime config.
func New(cfg config.Config, logger log.Logger) *VM {
	return &VM{
		Config: cfg,
		log:    logger,
		tracer: otel.Tracer(tracerName),
	}
}

// Initialize opens the pool state over cfg.DB. On first start it validates
// the genesis pool bundle and lists its reserves; later starts load the
// stored bundle and ignore cfg.Genesis.
func (vm *VM) Initialize(ctx context.Context, cfg *lendvm.Config) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	runtime, err := config.Overlay(vm.Config, cfg.Config)
	if err != nil {
		return err
	}
	vm.Config = runtime
	vm.chainID = cfg.ChainID
	vm.toEngine = cfg.ToEngine

	vm.state, err = state.New(cfg.DB, vm.ReserveCacheSize, vm.PositionCacheSize)
	if err != nil {
		return err
	}

	poolCfg, err := vm.loadPool(cfg.Genesis)
	if err != nil {
		return err
	}
	vm.height, vm.timestamp, err = vm.state.GetLastAccepted()
	if err != nil {
		return err
	}
	vm.timestamp = max(vm.timestamp, poolCfg.Timestamp)

	vm.feed = oracle.NewFeed(poolCfg.PriceWindow)
	prices, err := vm.state.Prices()
	if err != nil {
		return err
	}
	for asset, p := range prices {
		if err := vm.feed.SetPrice(asset, p.Value, p.Timestamp); err != nil {
			return fmt.Errorf("failed to restore price of %s: %w", asset, err)
		}
	}

	vm.fund = backstop.NewFund(vm.state.BackstopDB())
	vm.recorder = &events.Recorder{}
	vm.pool = pool.New(poolCfg, vm.state, vm.feed, vm.fund, vm.recorder, vm.log)
	vm.mempool = mempool.New(vm.MempoolSize)

	vm.auctions = auction.NewIndex()
	stored, err := vm.state.Auctions()
	if err != nil {
		return err
	}
	if vm.IndexAuctions {
		for _, a := range stored {
			vm.auctions.Put(a.Key(), a.CreatedAt)
		}
	}

	registerer := cfg.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	vm.metrics, err = metrics.New(registerer)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.SetActiveAuctions(vm.metrics, len(stored))
	vm.apiMetrics = utilmetric.NewAPIInterceptor("poolvm_api", cfg.APIRegistry)
	vm.blockDuration = utilmetric.NewAverager("poolvm", "block_duration", "nanoseconds spent processing blocks", cfg.APIRegistry)

	vm.initialized = true
	vm.log.Info("pool VM initialized",
		log.Stringer("chainID", vm.chainID),
		log.String("pool", poolCfg.Name),
		log.Int("reserves", len(poolCfg.Reserves)),
		log.Uint64("height", vm.height),
		log.Int("auctions", len(stored)),
	)
	return nil
}

// loadPool returns the stored pool bundle, writing the genesis one on first
// start.
func (vm *VM) loadPool(genesis []byte) (config.Pool, error) {
	initialized, err := vm.state.IsInitialized()
	if err != nil {
		return config.Pool{}, err
	}
	if initialized {
		return vm.state.GetPool()
	}

	poolCfg, err := config.ParsePool(genesis)
	if err != nil {
		return config.Pool{}, fmt.Errorf("failed to parse genesis: %w", err)
	}
	for _, r := range poolCfg.Reserves {
		if err := vm.state.AddReserve(r.Asset, r.Config, poolCfg.Timestamp); err != nil {
			return config.Pool{}, err
		}
	}
	err = errors.Join(
		vm.state.PutPool(poolCfg),
		vm.state.PutStatus(state.Active),
		vm.state.PutLastAccepted(0, poolCfg.Timestamp),
		vm.state.SetInitialized(),
	)
	if err != nil {
		vm.state.AbortBlock()
		return config.Pool{}, err
	}
	return poolCfg, vm.state.Commit()
}

// SetState transitions the VM between bootstrapping and normal operation.
// Transactions are only accepted in normal operation.
func (vm *VM) SetState(_ context.Context, s lendvm.State) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	switch s {
	case lendvm.Bootstrapping:
		vm.log.Info("pool VM bootstrapping")
		vm.bootstrapped = false
	case lendvm.NormalOp:
		vm.log.Info("pool VM ready")
		vm.bootstrapped = true
	default:
		return fmt.Errorf("%w: %s", errUnknownState, s)
	}
	return nil
}

// ProcessBlock executes txs in order at blockTime. A transaction that fails
// to parse, verify or execute is rolled back and reported in the result; it
// never fails the block. The error return is reserved for blocks that
// cannot be applied at all and for storage failures.
func (vm *VM) ProcessBlock(ctx context.Context, height uint64, blockTime time.Time, txBytes [][]byte) (*BlockResult, error) {
	_, span := vm.tracer.Start(ctx, "poolvm.ProcessBlock", trace.WithAttributes(
		attribute.Int64("height", int64(height)),
		attribute.Int("txs", len(txBytes)),
	))
	defer span.End()

	vm.lock.Lock()
	defer vm.lock.Unlock()

	result, err := vm.processBlock(height, blockTime, txBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("accepted", len(result.Accepted)),
		attribute.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func (vm *VM) processBlock(height uint64, blockTime time.Time, txBytes [][]byte) (*BlockResult, error) {
	switch {
	case vm.shutdown:
		return nil, errShutdown
	case !vm.initialized:
		return nil, errNotInitialized
	case height != vm.height+1:
		return nil, fmt.Errorf("%w: got %d, expected %d", errInvalidHeight, height, vm.height+1)
	case len(txBytes) > vm.MaxTxsPerBlock:
		return nil, fmt.Errorf("%w: %d > %d", errTooManyTxs, len(txBytes), vm.MaxTxsPerBlock)
	}
	now := uint64(max(blockTime.Unix(), 0))
	if now < vm.timestamp {
		return nil, fmt.Errorf("%w: %d < %d", errTimestampRegression, now, vm.timestamp)
	}

	start := time.Now()
	result := &BlockResult{
		Height:    height,
		Timestamp: blockTime,
	}
	// Nothing the block does is visible outside the VM until the block
	// commits. On failure the state, the feed and the recorder go back to
	// the last accepted block.
	checkpoint := vm.feed.Checkpoint()
	abort := func(err error) (*BlockResult, error) {
		vm.state.AbortBlock()
		vm.recorder.Discard()
		vm.feed.Restore(checkpoint)
		return nil, err
	}

	var (
		txIDs    = make([]ids.ID, 0, len(txBytes))
		executed = make([]*txs.Tx, 0, len(txBytes))
		outcomes = make([]error, 0, len(txBytes))
	)
	for _, b := range txBytes {
		tx, err := txs.Parse(b)
		if err != nil {
			var txID ids.ID = hash.ComputeHash256Array(b)
			txIDs = append(txIDs, txID)
			result.Rejected = append(result.Rejected, TxFailure{TxID: txID, Err: err})
			vm.log.Warn("dropping unparsable tx",
				log.Stringer("txID", txID),
				log.Err(err),
			)
			continue
		}
		txIDs = append(txIDs, tx.ID())

		outcome, err := vm.executeTx(tx, now)
		if err != nil {
			return abort(err)
		}
		executed = append(executed, tx)
		outcomes = append(outcomes, outcome.err)
		if outcome.err != nil {
			result.Rejected = append(result.Rejected, TxFailure{TxID: tx.ID(), Err: outcome.err})
			vm.log.Warn("transaction failed",
				log.Stringer("txID", tx.ID()),
				log.Stringer("sender", tx.Unsigned.Origin()),
				log.Err(outcome.err),
			)
			continue
		}
		result.Accepted = append(result.Accepted, tx.ID())
		result.Events = append(result.Events, outcome.events...)
	}

	if err := vm.state.PutLastAccepted(height, now); err != nil {
		return abort(err)
	}
	if err := vm.state.Commit(); err != nil {
		return abort(fmt.Errorf("failed to commit block %d: %w", height, err))
	}
	vm.height = height
	vm.timestamp = now
	result.ID = blockID(height, now, txIDs)

	for i, tx := range executed {
		vm.metrics.MarkTx(tx, outcomes[i])
	}
	vm.applyEvents(result.Events)
	vm.mempool.Remove(txIDs...)
	vm.metrics.SetMempoolSize(vm.mempool.Len())
	vm.metrics.MarkBlock(height, len(txBytes))
	vm.blockDuration.Observe(float64(time.Since(start)))

	vm.log.Debug("block processed",
		log.Uint64("height", height),
		log.Stringer("blockID", result.ID),
		log.Int("accepted", len(result.Accepted)),
		log.Int("rejected", len(result.Rejected)),
		log.Int("events", len(result.Events)),
	)
	return result, nil
}

// txOutcome is the result of one transaction. A failed transaction has
// had every change it made dropped.
type txOutcome struct {
	events []events.Event
	err    error
}

// executeTx runs one transaction in its own pending layer and moves its
// changes into the block on success. The error return is a storage failure
// that fails the whole block.
func (vm *VM) executeTx(tx *txs.Tx, now uint64) (txOutcome, error) {
	e := &executor{vm: vm, now: now}
	txErr := tx.Verify()
	if txErr == nil {
		txErr = tx.Unsigned.Visit(e)
	}
	if txErr != nil {
		vm.state.Abort()
		vm.recorder.Discard()
		return txOutcome{err: txErr}, nil
	}
	if err := vm.state.CommitTx(); err != nil {
		return txOutcome{}, fmt.Errorf("failed to commit tx %s: %w", tx.ID(), err)
	}

	// later transactions in the block price against these
	for _, p := range e.prices {
		if err := vm.feed.SetPrice(p.asset, p.value, now); err != nil {
			return txOutcome{}, err
		}
	}
	return txOutcome{events: vm.recorder.Flush()}, nil
}

// applyEvents keeps the in-memory views in step with committed state.
func (vm *VM) applyEvents(evs []events.Event) {
	for _, e := range evs {
		if !vm.IndexAuctions {
			break
		}
		switch e := e.(type) {
		case *events.AuctionCreated:
			vm.auctions.Put(auction.Key{User: e.User, Type: e.Type}, e.Time)
		case *events.AuctionFilled:
			if e.Done {
				vm.auctions.Delete(auction.Key{User: e.User, Type: e.Type})
			}
		case *events.AuctionExpired:
			vm.auctions.Delete(auction.Key{User: e.User, Type: e.Type})
		case *events.AuctionDeleted:
			vm.auctions.Delete(auction.Key{User: e.User, Type: e.Type})
		}
	}
	vm.metrics.MarkEvents(evs)
	if vm.LogEvents {
		events.Log(vm.log, evs)
	}
}

// BuildBlock processes the oldest waiting transactions as the next block at
// the current time.
func (vm *VM) BuildBlock(ctx context.Context) (*BlockResult, error) {
	vm.lock.RLock()
	height, timestamp := vm.height+1, vm.timestamp
	vm.lock.RUnlock()

	pending := vm.mempool.Peek(vm.MaxTxsPerBlock)
	txBytes := make([][]byte, len(pending))
	for i, tx := range pending {
		txBytes[i] = tx.Bytes()
	}
	blockTime := vm.clock.Time()
	if unix := blockTime.Unix(); unix < 0 || uint64(unix) < timestamp {
		blockTime = time.Unix(int64(timestamp), 0)
	}
	return vm.ProcessBlock(ctx, height, blockTime, txBytes)
}

// IssueTx queues a transaction for the next block.
func (vm *VM) IssueTx(txBytes []byte) (ids.ID, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	switch {
	case vm.shutdown:
		return ids.Empty, errShutdown
	case !vm.bootstrapped:
		return ids.Empty, errNotBootstrapped
	}

	tx, err := txs.Parse(txBytes)
	if err != nil {
		return ids.Empty, err
	}
	if err := tx.Verify(); err != nil {
		return ids.Empty, err
	}
	if err := vm.mempool.Add(tx); err != nil {
		return ids.Empty, err
	}
	pending := vm.mempool.Len()
	vm.metrics.SetMempoolSize(pending)
	vm.notify(lendvm.PendingTxs, uint64(pending))

	vm.log.Debug("tx issued",
		log.Stringer("txID", tx.ID()),
		log.Int("pending", pending),
	)
	return tx.ID(), nil
}

// notify tells the host about pending work without blocking.
func (vm *VM) notify(typ lendvm.MessageType, n uint64) {
	if vm.toEngine == nil {
		return
	}
	msg := lendvm.Message{Type: typ, Content: binary.BigEndian.AppendUint64(nil, n)}
	select {
	case vm.toEngine <- msg:
	default:
		vm.log.Debug("dropping engine message, channel full",
			log.Stringer("type", typ),
		)
	}
}

// Shutdown releases the pool state. The underlying database stays open.
func (vm *VM) Shutdown(context.Context) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	if vm.shutdown {
		return nil
	}
	vm.shutdown = true
	vm.log.Info("shutting down pool VM")
	vm.notify(lendvm.Halted, vm.height)

	if vm.state == nil {
		return nil
	}
	if err := vm.state.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	return nil
}

func (*VM) Version(context.Context) (string, error) {
	return Version, nil
}

// CreateHandlers returns the JSON-RPC handler of the pool service.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	codec := json.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	server.RegisterInterceptFunc(vm.apiMetrics.InterceptRequest)
	server.RegisterAfterFunc(vm.apiMetrics.AfterRequest)
	if err := server.RegisterService(api.NewService(vm, vm.log), "pool"); err != nil {
		return nil, fmt.Errorf("failed to register pool service: %w", err)
	}
	return map[string]http.Handler{"": server}, nil
}

// HealthCheck reports liveness details.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if !vm.initialized {
		return nil, errNotInitialized
	}
	status, err := vm.state.GetStatus()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"healthy":      !vm.shutdown,
		"bootstrapped": vm.bootstrapped,
		"status":       status.String(),
		"height":       vm.height,
		"timestamp":    vm.timestamp,
		"auctions":     vm.auctions.Len(),
		"mempool":      vm.mempool.Len(),
		"prices":       vm.feed.Assets(),
	}, nil
}

// now is the time queries accrue to: the wall clock, never before the last
// accepted block.
func (vm *VM) now() uint64 {
	return max(vm.clock.Unix(), vm.timestamp)
}

func (vm *VM) GetStatus() (api.Status, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	status, err := vm.pool.Status()
	if err != nil {
		return api.Status{}, err
	}
	return api.Status{
		Pool:         vm.pool.Config(),
		Status:       status,
		Height:       vm.height,
		Timestamp:    vm.timestamp,
		Bootstrapped: vm.bootstrapped,
		PendingTxs:   vm.mempool.Len(),
		Auctions:     vm.auctions.Len(),
	}, nil
}

func (vm *VM) GetReserve(asset ids.ID) (*reserve.Reserve, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.pool.Reserve(asset, vm.now())
}

func (vm *VM) GetReserves() ([]*reserve.Reserve, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.pool.Reserves(vm.now())
}

func (vm *VM) GetPositions(user ids.ShortID) (*positions.Positions, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.pool.Positions(user)
}

func (vm *VM) GetAccount(user ids.ShortID) (health.Account, health.Class, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.pool.Account(user, vm.now())
}

func (vm *VM) GetBackstopBalance(asset ids.ID) (uint64, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.fund.Balance(asset)
}

func (vm *VM) GetAuction(key auction.Key) (*auction.Auction, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()
	return vm.pool.Auction(key)
}

// ListAuctions returns up to limit auctions, oldest first. Without the
// in-memory index it reads every stored auction.
func (vm *VM) ListAuctions(limit int) ([]*auction.Auction, error) {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	if !vm.IndexAuctions {
		all, err := vm.pool.Auctions()
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	keys := vm.auctions.Keys(limit)
	out := make([]*auction.Auction, 0, len(keys))
	for _, key := range keys {
		a, err := vm.pool.Auction(key)
		if err != nil {
			return nil, fmt.Errorf("index out of sync at %s: %w", key, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// ExpiredAuctions returns the keys of auctions whose window has passed at
// the last accepted block.
func (vm *VM) ExpiredAuctions() []auction.Key {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	window := vm.pool.Config().Window
	if vm.timestamp < window {
		return nil
	}
	return vm.auctions.CreatedBefore(vm.timestamp - window)
}
