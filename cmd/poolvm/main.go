// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luxfi/lendvm/cmd/poolvm/export"
	"github.com/luxfi/lendvm/cmd/poolvm/serve"
	"github.com/luxfi/lendvm/cmd/poolvm/validate"
	"github.com/luxfi/lendvm/cmd/poolvm/version"
)

func main() {
	cmd := &cobra.Command{
		Use:          "poolvm",
		Short:        "Runs and inspects lending pools",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		serve.Command(),
		validate.Command(),
		export.Command(),
		version.Command(),
	)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
