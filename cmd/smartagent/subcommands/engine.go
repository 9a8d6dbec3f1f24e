// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package subcommands

import (
	"context"
	"fmt"
	"os"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/config"
	"github.com/smartagent/agent/pkg/etc"
	"github.com/smartagent/agent/pkg/log"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/registry"
)

// loadContext reads the host configuration and spec-package named by opts,
// applying --host/--ip/--checks as overrides on top of the configured
// values.
func loadContext(opts *globalOpts) (*config.AgentConfig, *etc.Package, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("smartagent: %w", err)
	}
	if opts.host != "" {
		cfg.HostName = opts.host
	}
	if opts.ip != "" {
		cfg.HostAddr = opts.ip
	}
	if len(opts.checks) > 0 {
		cfg.Checks = opts.checks
	}

	f, err := os.Open(opts.packagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("smartagent: opening package: %w", err)
	}
	defer f.Close()
	pkg, err := etc.LoadPackage(f)
	if err != nil {
		return nil, nil, fmt.Errorf("smartagent: loading package: %w", err)
	}
	return cfg, pkg, nil
}

// resolveTables resolves the tables gated in by tag (an MP tag: "inventory"
// or "active"), narrowed to
// cfg.Checks when the CLI or config restricts to a check allowlist.
func resolveTables(pkg *etc.Package, cfg *config.AgentConfig, tag string) []string {
	base := pkg.TablesForTags(map[string]struct{}{tag: {}})
	if len(cfg.Checks) == 0 {
		return base
	}
	allowed := make(map[string]struct{})
	for _, id := range pkg.TablesForChecks(cfg.Checks) {
		allowed[id] = struct{}{}
	}
	var filtered []string
	for _, id := range base {
		if _, ok := allowed[id]; ok {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

// runCycle runs the full collection cycle for tableIDs: builds the
// protocol query plan, dispatches it to each
// protocol's plugin, and folds the results back through the package's row
// expressions.
func runCycle(ctx context.Context, cfg *config.AgentConfig, pkg *etc.Package, opts *globalOpts, tableIDs []string) (map[string][]etc.Item, []agenterror.Warning, error) {
	if len(tableIDs) == 0 {
		return nil, nil, nil
	}

	plugins, err := registry.Build(opts.stateDir)
	if err != nil {
		return nil, nil, fmt.Errorf("smartagent: building plugin registry: %w", err)
	}

	plan := pkg.QueriesFor(tableIDs)
	input := cfg.Input()
	data := make(plugin.DataMap)
	for proto, tq := range plan {
		p, ok := plugins[proto]
		if !ok {
			log.Warnf("smartagent: no plugin registered for protocol %q, skipping %d table(s)", proto, len(tq))
			continue
		}
		rawConfig, err := cfg.ProtocolConfig(proto)
		if err != nil {
			return nil, nil, fmt.Errorf("smartagent: decoding %s config: %w", proto, err)
		}

		invocationID := plugin.NewInvocationID()
		clog := log.With("invocation_id", invocationID, "protocol", proto)
		clog.Infof("running %d table(s)", len(tq))
		result, err := p.RunQueries(ctx, input, rawConfig, tq)
		if err != nil {
			return nil, nil, fmt.Errorf("smartagent: %s: %w", proto, err)
		}
		for tableID, rows := range result {
			data[tableID] = rows
		}
	}

	items, warnings := etc.Calculate(pkg, tableIDs, data)
	return items, warnings, nil
}
