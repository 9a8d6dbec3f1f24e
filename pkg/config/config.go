// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package config loads the agent's host configuration through a single
// viper instance.
package config

import (
	"encoding/json"
	"fmt"
	"net"

	"dario.cat/mergo"
	"github.com/DataDog/viper"

	"github.com/smartagent/agent/pkg/plugin"
)

// VaultKind selects the credential source.
type VaultKind string

const (
	VaultNone    VaultKind = "none"
	VaultKeePass VaultKind = "keepass"
)

// AgentOptions mirrors the `agent.*` config block.
type AgentOptions struct {
	UsePasswordVault         VaultKind `mapstructure:"use_password_vault"`
	RunNoninventorizedChecks bool      `mapstructure:"run_noninventorized_checks"`
	WriteSmartmData          struct {
		Instances []string `mapstructure:"instances"`
	} `mapstructure:"write_smartm_data"`
}

// AgentConfig is the decoded top-level host configuration.
type AgentConfig struct {
	HostName  string                                     `mapstructure:"host_name"`
	HostAddr  string                                     `mapstructure:"host_addr"`
	Protocols map[plugin.Protocol]map[string]interface{} `mapstructure:"protocols"`
	Tags      []string                                   `mapstructure:"tags"`
	Checks    []string                                   `mapstructure:"checks"`
	Agent     AgentOptions                               `mapstructure:"agent"`
}

// Load reads path (any format viper supports: YAML, JSON, TOML) into an
// AgentConfig. Defaults are seeded before the file is read so an absent
// key decodes to a usable zero configuration.
func Load(path string) (*AgentConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("agent.use_password_vault", VaultNone)
	v.SetDefault("agent.run_noninventorized_checks", false)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.HostAddr != "" {
		if net.ParseIP(cfg.HostAddr) == nil {
			return nil, fmt.Errorf("config: host_addr %q is not an IP address", cfg.HostAddr)
		}
	}
	return &cfg, nil
}

// Input adapts AgentConfig to the plugin.Input the collection engine
// passes every protocol plugin.
func (c *AgentConfig) Input() plugin.Input {
	var addr net.IP
	if c.HostAddr != "" {
		addr = net.ParseIP(c.HostAddr)
	}
	return plugin.Input{HostName: c.HostName, HostAddr: addr}
}

// ProtocolConfig re-marshals one protocol's opaque config block to the
// json.RawMessage every plugin.Plugin method expects.
func (c *AgentConfig) ProtocolConfig(id plugin.Protocol) (json.RawMessage, error) {
	raw, ok := c.Protocols[id]
	if !ok {
		return nil, nil
	}
	return json.Marshal(raw)
}

// MergeOverride layers a per-host override on top of a protocol's default
// config block; override's keys win.
func MergeOverride(base, override map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(base))
	for k, v := range base {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}

// EnabledChecks reports whether id should run given the optional checks
// allowlist.
func (c *AgentConfig) EnabledChecks(id string) bool {
	if len(c.Checks) == 0 {
		return true
	}
	for _, want := range c.Checks {
		if want == id {
			return true
		}
	}
	return false
}

// HasTag reports whether tag is present. Tags gate which MPs apply.
func (c *AgentConfig) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
