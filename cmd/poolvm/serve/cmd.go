// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package serve runs a standalone pool node: the VM, its JSON-RPC API and
// a block builder on a fixed interval.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/lendvm"
	"github.com/luxfi/lendvm/cmd/poolvm/node"
	"github.com/luxfi/lendvm/utils/profiler"
	"github.com/luxfi/lendvm/vms/poolvm"
)

const (
	PoolEndpoint    = "/ext/pool"
	MetricsEndpoint = "/ext/metrics"
	HealthEndpoint  = "/ext/health"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Runs a pool node",
		RunE:  serveFunc,
	}
	AddFlags(c.Flags())
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	cfg, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return Run(ctx, cfg, log.NewLogger("poolvm"))
}

// Run serves until ctx is cancelled or a component fails.
func Run(ctx context.Context, cfg *Config, logger log.Logger) error {
	registry := prometheus.NewRegistry()
	if err := errors.Join(
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return err
	}

	toEngine := make(chan lendvm.Message, 1)
	n, err := node.Open(ctx, node.Config{
		DataDir:     cfg.DataDir,
		GenesisFile: cfg.GenesisFile,
		ConfigFile:  cfg.ConfigFile,
		ChainID:     cfg.ChainID,
		Registerer:  registry,
		APIRegistry: metric.NewRegistry(),
		ToEngine:    toEngine,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(context.Background()); err != nil {
			logger.Error("failed to close node", log.Err(err))
		}
	}()
	if err := n.VM.SetState(ctx, lendvm.NormalOp); err != nil {
		return err
	}

	handler, err := NewHandler(ctx, n.VM, registry, cfg.AllowedOrigins)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("API server listening", log.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return BuildBlocks(ctx, n.VM, toEngine, logger)
	})
	if cfg.ProfileDir != "" {
		p, err := profiler.New(profiler.Config{
			Dir:         cfg.ProfileDir,
			Freq:        cfg.ProfileFreq,
			MaxNumFiles: cfg.ProfileFiles,
		})
		if err != nil {
			return err
		}
		g.Go(p.Dispatch)
		g.Go(func() error {
			<-ctx.Done()
			p.Shutdown()
			return nil
		})
	}
	return g.Wait()
}

// NewHandler routes the pool API, metrics and health behind CORS.
func NewHandler(ctx context.Context, vm *poolvm.VM, gatherer prometheus.Gatherer, allowedOrigins []string) (http.Handler, error) {
	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return nil, err
	}
	router := mux.NewRouter()
	for path, h := range handlers {
		router.Handle(PoolEndpoint+path, h)
	}
	router.Handle(MetricsEndpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.HandleFunc(HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		details, err := vm.HealthCheck(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			details = map[string]string{"error": err.Error()}
		}
		_ = json.NewEncoder(w).Encode(details)
	}).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
	}).Handler(router), nil
}

// BuildBlocks builds a block every BlockInterval while transactions are
// waiting. It returns nil once ctx is done and an error only when a block
// could not be applied.
func BuildBlocks(ctx context.Context, vm *poolvm.VM, toEngine <-chan lendvm.Message, logger log.Logger) error {
	ticker := time.NewTicker(vm.BlockInterval)
	defer ticker.Stop()

	var pending bool
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-toEngine:
			if msg.Type == lendvm.PendingTxs {
				pending = true
			}
			continue
		case <-ticker.C:
		}
		if !pending {
			continue
		}

		result, err := vm.BuildBlock(ctx)
		if err != nil {
			return fmt.Errorf("failed to build block: %w", err)
		}
		logger.Info("built block",
			log.Uint64("height", result.Height),
			log.Stringer("blockID", result.ID),
			log.Int("accepted", len(result.Accepted)),
			log.Int("rejected", len(result.Rejected)),
		)

		status, err := vm.GetStatus()
		if err != nil {
			return err
		}
		pending = status.PendingTxs > 0
	}
}
