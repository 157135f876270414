// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package poolvm implements a lending pool VM: suppliers earn interest from
// borrowers, positions are kept solvent by oracle priced health checks, and
// unhealthy or bankrupt accounts are cleared through Dutch auctions backed
// by a first-loss backstop fund.
package poolvm

import (
	"github.com/luxfi/log"

	"github.com/luxfi/lendvm"
	"github.com/luxfi/lendvm/vms/poolvm/config"
)

var (
	// VMID is the unique identifier for the pool VM
	VMID = [32]byte{'p', 'o', 'o', 'l', 'v', 'm'}

	_ lendvm.Factory = (*Factory)(nil)
)

// Factory creates new pool VM instances.
type Factory struct {
	config.Config
}

// New returns an uninitialized *VM carrying the factory's runtime config.
func (f *Factory) New(logger log.Logger) (interface{}, error) {
	return New(f.Config, logger), nil
}
