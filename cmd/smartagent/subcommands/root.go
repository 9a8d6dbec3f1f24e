// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package subcommands implements the smartagent CLI surface: one file
// per subcommand, a shared set
// of persistent flags on the root command, cobra+pflag throughout.
package subcommands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smartagent/agent/pkg/log"
)

// globalOpts holds the persistent flags every subcommand reads.
type globalOpts struct {
	configPath  string
	packagePath string
	stateDir    string
	host        string
	ip          string
	checks      []string
	verbosity   string
}

// NewRootCommand builds the smartagent root command and its run,
// inventory, active, and show-queries subcommands.
func NewRootCommand() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "smartagent",
		Short:         "Pluggable monitoring data-collection agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.SetLevel(opts.verbosity); err != nil {
				return fmt.Errorf("smartagent: invalid -v level %q: %w", opts.verbosity, err)
			}
			return nil
		},
	}

	addGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(
		newRunCommand(opts),
		newInventoryCommand(opts),
		newActiveCommand(opts),
		newShowQueriesCommand(opts),
	)
	return root
}

// addGlobalFlags registers the persistent flag set every subcommand shares.
func addGlobalFlags(flags *pflag.FlagSet, opts *globalOpts) {
	flags.StringVar(&opts.configPath, "config", "/etc/smartagent/smartagent.yaml", "path to the agent's host configuration file")
	flags.StringVar(&opts.packagePath, "package", "/etc/smartagent/smartagent.pkg", "path to the spec-package document")
	flags.StringVar(&opts.stateDir, "state-dir", "/var/lib/smartagent", "directory for counter stores and timestamp files")
	flags.StringVar(&opts.host, "host", "", "override the configured host_name")
	flags.StringVar(&opts.ip, "ip", "", "override the configured host_addr")
	flags.StringSliceVar(&opts.checks, "checks", nil, "restrict to this comma-separated set of check ids")
	flags.StringVarP(&opts.verbosity, "verbosity", "v", "info", "log level: debug, info, warn, error")
}
