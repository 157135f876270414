// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package export writes a JSON snapshot of a stopped node's pool state.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/lendvm/cmd/poolvm/node"
	"github.com/luxfi/lendvm/utils/compression"
)

const (
	DataDirKey  = "data-dir"
	OutputKey   = "output"
	CompressKey = "compress"

	// maxSnapshotSize bounds a compressed snapshot.
	maxSnapshotSize = 256 << 20
	filePerms       = 0o644
)

var errNoDataDir = errors.New("data dir is required")

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "export",
		Short: "Writes a snapshot of the pool state to a file",
		Args:  cobra.NoArgs,
		RunE:  exportFunc,
	}
	flags := c.Flags()
	flags.String(DataDirKey, "", "Directory of the pool database")
	flags.String(OutputKey, "snapshot.json", "File the snapshot is written to")
	flags.Bool(CompressKey, false, "Compress the snapshot with zstd")
	return c
}

func exportFunc(c *cobra.Command, _ []string) error {
	flags := c.Flags()
	dataDir, err := flags.GetString(DataDirKey)
	if err != nil {
		return err
	}
	output, err := flags.GetString(OutputKey)
	if err != nil {
		return err
	}
	compress, err := flags.GetBool(CompressKey)
	if err != nil {
		return err
	}
	if dataDir == "" {
		return errNoDataDir
	}
	return Export(c.Context(), node.Config{DataDir: dataDir}, output, compress, log.NewNoOpLogger())
}

// Export opens the pool in cfg and atomically replaces output with its
// snapshot.
func Export(ctx context.Context, cfg node.Config, output string, compress bool, logger log.Logger) error {
	n, err := node.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	snapshot, err := n.VM.Snapshot()
	if err != nil {
		return errors.Join(err, n.Close(ctx))
	}
	if err := n.Close(ctx); err != nil {
		return err
	}

	b, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if compress {
		c, err := compression.NewZstdCompressor(maxSnapshotSize)
		if err != nil {
			return err
		}
		if b, err = c.Compress(b); err != nil {
			return err
		}
	}
	return renameio.WriteFile(output, b, filePerms)
}
