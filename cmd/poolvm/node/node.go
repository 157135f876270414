// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package node opens a pool VM over a local database for the poolvm
// commands.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/corruptabledb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/lendvm"
	"github.com/luxfi/lendvm/vms/poolvm"
	"github.com/luxfi/lendvm/vms/poolvm/config"
)

var errNoGenesis = errors.New("no genesis file and no stored pool")

// Config says where a node keeps its state and how it starts.
type Config struct {
	// DataDir holds the badger database. Empty keeps state in memory.
	DataDir string
	// GenesisFile is the JSON pool bundle. Only read on first start.
	GenesisFile string
	// ConfigFile overrides the runtime defaults. Optional.
	ConfigFile string
	ChainID    ids.ID

	Registerer  prometheus.Registerer
	APIRegistry metric.Registry
	ToEngine    chan<- lendvm.Message
}

// OpenDB opens the badger database in dir, or an in-memory database when
// dir is empty. Storage failures are latched so the VM stops writing.
func OpenDB(dir string, logger log.Logger) (database.Database, error) {
	var db database.Database = memdb.New()
	if dir != "" {
		var err error
		db, err = badgerdb.New(dir, nil, "", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open database at %q: %w", dir, err)
		}
	}
	return corruptabledb.New(db, logger), nil
}

// Node is an initialized VM and the database under it.
type Node struct {
	VM *poolvm.VM
	DB database.Database
}

// Open initializes a pool VM. Without a genesis file the database must
// already hold a pool.
func Open(ctx context.Context, cfg Config, logger log.Logger) (*Node, error) {
	var (
		genesis, runtime []byte
		err              error
	)
	if cfg.GenesisFile != "" {
		genesis, err = os.ReadFile(cfg.GenesisFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read genesis: %w", err)
		}
	}
	if cfg.ConfigFile != "" {
		runtime, err = os.ReadFile(cfg.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	db, err := OpenDB(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	vm := poolvm.New(config.DefaultConfig(), logger)
	err = vm.Initialize(ctx, &lendvm.Config{
		ChainID:     cfg.ChainID,
		DB:          db,
		Genesis:     genesis,
		Config:      runtime,
		Registerer:  cfg.Registerer,
		APIRegistry: cfg.APIRegistry,
		ToEngine:    cfg.ToEngine,
	})
	if err != nil {
		_ = db.Close()
		if len(genesis) == 0 {
			return nil, fmt.Errorf("%w: %w", errNoGenesis, err)
		}
		return nil, err
	}
	return &Node{VM: vm, DB: db}, nil
}

// Close shuts the VM down and closes the database.
func (n *Node) Close(ctx context.Context) error {
	return errors.Join(
		n.VM.Shutdown(ctx),
		n.DB.Close(),
	)
}
