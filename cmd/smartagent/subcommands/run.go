// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package subcommands

import (
	"github.com/spf13/cobra"
)

// newRunCommand builds `smartagent run`: a single collection cycle over
// every table gated in by either the "inventory" or "active" MP tag,
// i.e. the full set a scheduled invocation of this agent would produce.
func newRunCommand(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a full inventory+active collection cycle and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pkg, err := loadContext(opts)
			if err != nil {
				return err
			}

			tableIDs := mergeTables(
				resolveTables(pkg, cfg, "inventory"),
				resolveTables(pkg, cfg, "active"),
			)

			items, warnings, err := runCycle(cmd.Context(), cfg, pkg, opts, tableIDs)
			if err != nil {
				return err
			}
			renderItems(cmd.OutOrStdout(), items, warnings)
			return nil
		},
	}
}

// mergeTables concatenates table-id lists, dropping duplicates while
// keeping first-seen order.
func mergeTables(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
