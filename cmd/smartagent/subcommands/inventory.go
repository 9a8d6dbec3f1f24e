// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package subcommands

import (
	"github.com/spf13/cobra"
)

// newInventoryCommand builds `smartagent inventory`: a collection cycle
// restricted to tables gated in by the "inventory" MP tag.
func newInventoryCommand(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Run the inventory-tagged tables and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pkg, err := loadContext(opts)
			if err != nil {
				return err
			}
			tableIDs := resolveTables(pkg, cfg, "inventory")
			items, warnings, err := runCycle(cmd.Context(), cfg, pkg, opts, tableIDs)
			if err != nil {
				return err
			}
			renderItems(cmd.OutOrStdout(), items, warnings)
			return nil
		},
	}
}
