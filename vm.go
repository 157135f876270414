// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lendvm defines the interfaces shared by the lending VMs and the
// hosts that run them.
package lendvm

import (
	"context"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// VM defines the interface for a virtual machine
type VM interface {
	// Initialize initializes the VM with the given configuration
	Initialize(context.Context, *Config) error

	// Shutdown cleanly stops the VM
	Shutdown(context.Context) error

	// Version returns the VM version
	Version(context.Context) (string, error)

	// SetState transitions the VM to the specified state
	SetState(context.Context, State) error
}

// Config is what the host hands a VM on initialization.
type Config struct {
	ChainID   ids.ID
	NetworkID uint32
	NodeID    ids.NodeID

	// DB must outlive the VM. Shutdown does not close it.
	DB database.Database

	// Genesis is the JSON pool bundle.
	Genesis []byte
	// Config overrides the factory's runtime config when non-empty.
	Config []byte

	// Registerer receives the VM's metrics. Nil disables them.
	Registerer prometheus.Registerer
	// APIRegistry receives the API request metrics. Nil disables them.
	APIRegistry metric.Registry

	// ToEngine is notified when transactions are waiting. May be nil.
	ToEngine chan<- Message
}
