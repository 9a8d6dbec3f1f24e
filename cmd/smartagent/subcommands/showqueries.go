// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package subcommands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/registry"
)

// newShowQueriesCommand builds `smartagent show-queries`: renders the plan
// etc.QueriesFor built for the selected tables, one block per protocol
// plugin, without executing it.
func newShowQueriesCommand(opts *globalOpts) *cobra.Command {
	var inventory, active bool

	cmd := &cobra.Command{
		Use:   "show-queries",
		Short: "Print the query plan for the selected tables without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pkg, err := loadContext(opts)
			if err != nil {
				return err
			}

			var tableIDs []string
			switch {
			case inventory && !active:
				tableIDs = resolveTables(pkg, cfg, "inventory")
			case active && !inventory:
				tableIDs = resolveTables(pkg, cfg, "active")
			default:
				tableIDs = mergeTables(resolveTables(pkg, cfg, "inventory"), resolveTables(pkg, cfg, "active"))
			}

			plugins, err := registry.Build(opts.stateDir)
			if err != nil {
				return err
			}

			plan := pkg.QueriesFor(tableIDs)
			protocols := make([]string, 0, len(plan))
			for proto := range plan {
				protocols = append(protocols, string(proto))
			}
			sort.Strings(protocols)

			out := cmd.OutOrStdout()
			input := cfg.Input()
			for _, protoName := range protocols {
				proto := plugin.Protocol(protoName)
				tq := plan[proto]
				fmt.Fprintf(out, "== %s ==\n", proto)
				if p, ok := plugins[proto]; ok {
					dump, err := p.ShowQueries(cmd.Context(), input, tq)
					if err != nil {
						return err
					}
					fmt.Fprint(out, dump)
					continue
				}
				for tableID, fields := range tq {
					fmt.Fprintf(out, "%s: %v\n", tableID, fields.List())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&inventory, "inventory", false, "restrict to inventory-tagged tables")
	cmd.Flags().BoolVar(&active, "active", false, "restrict to active-tagged tables")
	return cmd
}
