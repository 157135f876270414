// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/lendvm/vms/poolvm/config"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <genesis.json> [config.json]",
		Short: "Checks a pool bundle and an optional runtime config",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  validateFunc,
	}
}

func validateFunc(c *cobra.Command, args []string) error {
	pool, err := Genesis(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "pool %q: %d reserves, backstop token %s\n",
		pool.Name, len(pool.Reserves), pool.BackstopToken)

	if len(args) < 2 {
		return nil
	}
	b, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	if _, err := config.Parse(b); err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	fmt.Fprintf(c.OutOrStdout(), "config %s: ok\n", args[1])
	return nil
}

// Genesis reads and validates the pool bundle at path.
func Genesis(path string) (config.Pool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return config.Pool{}, err
	}
	pool, err := config.ParsePool(b)
	if err != nil {
		return config.Pool{}, fmt.Errorf("%s: %w", path, err)
	}
	return pool, nil
}
