// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/luxfi/lendvm/vms/poolvm"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the pool VM version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.OutOrStdout(), "poolvm/%s [%s]\n", poolvm.Version, runtime.Version())
			return err
		},
	}
}
