// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package registry wires up one plugin.Plugin per protocol this agent
// ships. Building the registry is CLI-level glue; the protocol engines
// themselves live in pkg/snmp, pkg/apiplugin/*, pkg/sqlplugin,
// pkg/wmiplugin.
package registry

import (
	"path/filepath"

	"github.com/smartagent/agent/pkg/apiplugin"
	"github.com/smartagent/agent/pkg/apiplugin/azure"
	"github.com/smartagent/agent/pkg/apiplugin/elastic"
	"github.com/smartagent/agent/pkg/apiplugin/ldap"
	"github.com/smartagent/agent/pkg/apiplugin/proxmox"
	"github.com/smartagent/agent/pkg/apiplugin/unity"
	"github.com/smartagent/agent/pkg/apiplugin/vmware"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/snmp"
	"github.com/smartagent/agent/pkg/sqlplugin"
	"github.com/smartagent/agent/pkg/wmiplugin"
)

// Build constructs every protocol plugin this agent binary ships, each
// loading its own persistent counter/timestamp state from storeDir.
// Catalogs (the OID/class/query tables a given install cares about) are
// left empty here; they are the deployment's own data, not something the
// CLI can invent, and an empty catalog simply yields no tables from
// DescribeTables/RunQueries rather than failing. Protocols that need no
// catalog (the API plugins) are fully ready to run as-is.
func Build(storeDir string) (map[plugin.Protocol]plugin.Plugin, error) {
	out := make(map[plugin.Protocol]plugin.Plugin)

	snmpPlugin, err := snmp.New(snmp.Catalog{Tables: map[plugin.DataTableId]snmp.TableDef{}}, filepath.Join(storeDir, "snmp.counters"))
	if err != nil {
		return nil, err
	}
	out[snmpPlugin.ProtocolID()] = snmpPlugin

	sqlPlugin := sqlplugin.New(sqlplugin.Catalog{Tables: map[plugin.DataTableId]sqlplugin.TableSQL{}})
	out[sqlPlugin.ProtocolID()] = sqlPlugin

	wmiPlugin, err := wmiplugin.New(wmiplugin.Catalog{Tables: map[plugin.DataTableId]wmiplugin.TableWMI{}}, filepath.Join(storeDir, "wmi.counters"))
	if err != nil {
		return nil, err
	}
	out[wmiPlugin.ProtocolID()] = wmiPlugin

	azurePlugin, err := azure.New(filepath.Join(storeDir, "azure.timestamps"))
	if err != nil {
		return nil, err
	}
	out[azurePlugin.ProtocolID()] = azurePlugin

	vmwarePlugin := vmware.New()
	out[vmwarePlugin.ProtocolID()] = vmwarePlugin

	unityPlugin, err := unity.New(apiplugin.TLSConfig{})
	if err != nil {
		return nil, err
	}
	out[unityPlugin.ProtocolID()] = unityPlugin

	proxmoxPlugin, err := proxmox.New(apiplugin.TLSConfig{})
	if err != nil {
		return nil, err
	}
	out[proxmoxPlugin.ProtocolID()] = proxmoxPlugin

	elasticPlugin := elastic.New()
	out[elasticPlugin.ProtocolID()] = elasticPlugin

	ldapPlugin := ldap.New()
	out[ldapPlugin.ProtocolID()] = ldapPlugin

	return out, nil
}
