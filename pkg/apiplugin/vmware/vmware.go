// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package vmware implements the VMware vSphere protocol plugin: a SOAP
// property-collector client (govmomi) enumerating host systems, their
// overallStatus, hardware sensor readings, and SCSI LUN-path model, plus
// performance-counter sampling.
package vmware

import (
	"context"
	"encoding/json"
	"math"
	"net/url"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/performance"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

const (
	tableHosts    plugin.DataTableId = "hosts"
	tableSensors  plugin.DataTableId = "sensors"
	tableLunPaths plugin.DataTableId = "lun_paths"
	tableCounters plugin.DataTableId = "counters"
)

// ProtoConfig is the vSphere protocol-config block.
type ProtoConfig struct {
	URL         string `json:"url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Insecure    bool   `json:"insecure"`
	Parallelism int    `json:"parallelism"`
}

// Plugin implements plugin.Plugin for protocol "vmware".
type Plugin struct {
	// Dial opens the SOAP property-collector session; tests substitute a
	// fake.
	Dial func(ctx context.Context, cfg ProtoConfig) (*govmomi.Client, error)
}

// New builds the VMware plugin.
func New() *Plugin { return &Plugin{Dial: defaultDial} }

func defaultDial(ctx context.Context, cfg ProtoConfig) (*govmomi.Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	u.User = url.UserPassword(cfg.Username, cfg.Password)
	return govmomi.NewClient(ctx, u, cfg.Insecure)
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "vmware" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	return map[plugin.DataTableId]plugin.TableSpec{
		tableHosts: {
			Name:   "hosts", Keys: []plugin.DataFieldId{"name"},
			Fields: []plugin.DataFieldId{"name", "overall_status", "power_state"},
		},
		tableSensors: {
			Name:   "sensors", Keys: []plugin.DataFieldId{"host", "sensor_name"},
			Fields: []plugin.DataFieldId{"host", "sensor_name", "health_state", "current_reading"},
		},
		tableLunPaths: {
			Name:   "lun_paths", Keys: []plugin.DataFieldId{"host", "lun_key", "path_name"},
			Fields: []plugin.DataFieldId{"host", "lun_key", "path_name", "state"},
		},
		tableCounters: {
			Name:   "counters", Keys: []plugin.DataFieldId{"entity", "counter"},
			Fields: []plugin.DataFieldId{"entity", "counter", "value"},
		},
	}, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	str := value.UnicodeString()
	return map[plugin.DataFieldId]plugin.FieldSpec{
		"name":            {Name: "name", Type: str},
		"overall_status":  {Name: "overall_status", Type: str},
		"power_state":     {Name: "power_state", Type: str},
		"host":            {Name: "host", Type: str},
		"sensor_name":     {Name: "sensor_name", Type: str},
		"health_state":    {Name: "health_state", Type: str},
		"current_reading": {Name: "current_reading", Type: value.Float()},
		"lun_key":         {Name: "lun_key", Type: str},
		"path_name":       {Name: "path_name", Type: str},
		"state":           {Name: "state", Type: str},
		"entity":          {Name: "entity", Type: str},
		"counter":         {Name: "counter", Type: str},
		"value":           {Name: "value", Type: value.Float()},
	}, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	return "property-collector retrieve over HostSystem for requested tables", nil
}

// RunQueries dials the SOAP session, retrieves the HostSystem property
// tree, and decodes overallStatus, hardware sensors, SCSI LUN paths and
// performance counters into rows per requested table.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}
	client, err := p.Dial(ctx, cfg)
	if err != nil {
		return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindConnection, "plugin", err)), nil
	}
	defer client.Logout(ctx)

	finder := find.NewFinder(client.Client, true)
	hosts, err := finder.HostSystemList(ctx, "*")
	if err != nil {
		return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindQuery, "plugin", err)), nil
	}

	var hostMOs []mo.HostSystem
	refs := make([]types.ManagedObjectReference, len(hosts))
	for i, h := range hosts {
		refs[i] = h.Reference()
	}
	pc := property.DefaultCollector(client.Client)
	if len(refs) > 0 {
		if err := pc.Retrieve(ctx, refs, []string{"name", "overallStatus", "runtime", "hardware", "config"}, &hostMOs); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindQuery, "plugin", err)), nil
		}
	}

	out := plugin.DataMap{}
	if _, ok := tq[tableHosts]; ok {
		out[tableHosts] = value.AnnotatedOk[plugin.RowSet](hostRows(hostMOs))
	}
	if _, ok := tq[tableSensors]; ok {
		out[tableSensors] = value.AnnotatedOk[plugin.RowSet](sensorRows(hostMOs))
	}
	if _, ok := tq[tableLunPaths]; ok {
		out[tableLunPaths] = value.AnnotatedOk[plugin.RowSet](lunPathRows(hostMOs))
	}
	if _, ok := tq[tableCounters]; ok {
		rows, warn := counterRows(ctx, client, hosts)
		out[tableCounters] = value.AnnotatedOk[plugin.RowSet](rows, warn...)
	}
	return out, nil
}

func hostRows(hosts []mo.HostSystem) []value.Row {
	rows := make([]value.Row, 0, len(hosts))
	for _, h := range hosts {
		rows = append(rows, value.Row{
			"name":           value.DataOk(value.NewUnicodeString(h.Name)),
			"overall_status": value.DataOk(value.NewUnicodeString(string(h.OverallStatus))),
			"power_state":    value.DataOk(value.NewUnicodeString(string(h.Runtime.PowerState))),
		})
	}
	return rows
}

// sensorRows decodes the host's hardware health sensors.
func sensorRows(hosts []mo.HostSystem) []value.Row {
	var rows []value.Row
	for _, h := range hosts {
		if h.Runtime.HealthSystemRuntime == nil || h.Runtime.HealthSystemRuntime.SystemHealthInfo == nil {
			continue
		}
		for _, info := range h.Runtime.HealthSystemRuntime.SystemHealthInfo.NumericSensorInfo {
			rows = append(rows, value.Row{
				"host":            value.DataOk(value.NewUnicodeString(h.Name)),
				"sensor_name":     value.DataOk(value.NewUnicodeString(info.Name)),
				"health_state":    value.DataOk(value.NewUnicodeString(healthLabel(info.HealthState))),
				"current_reading": value.DataOk(value.NewFloat(float64(info.CurrentReading) * sensorScale(info.UnitModifier))),
			})
		}
	}
	return rows
}

func healthLabel(state types.AnyType) string {
	if es, ok := state.(types.ElementDescription); ok {
		return es.Label
	}
	return ""
}

func sensorScale(unitModifier int32) float64 {
	return math.Pow(10, float64(unitModifier))
}

// lunPathRows flattens each host's HostMultipathInfo.Lun[].Path model
// into one row per (lun, path).
func lunPathRows(hosts []mo.HostSystem) []value.Row {
	var rows []value.Row
	for _, h := range hosts {
		if h.Config == nil || h.Config.StorageDevice == nil || h.Config.StorageDevice.MultipathInfo == nil {
			continue
		}
		for _, lun := range h.Config.StorageDevice.MultipathInfo.Lun {
			for _, path := range lun.Path {
				rows = append(rows, value.Row{
					"host":      value.DataOk(value.NewUnicodeString(h.Name)),
					"lun_key":   value.DataOk(value.NewUnicodeString(lun.Id)),
					"path_name": value.DataOk(value.NewUnicodeString(path.Name)),
					"state":     value.DataOk(value.NewUnicodeString(string(path.PathState))),
				})
			}
		}
	}
	return rows
}

// counterRows samples a small, fixed set of performance counters
// (cpu.usage.average, mem.usage.average) per host.
func counterRows(ctx context.Context, client *govmomi.Client, hosts []*object.HostSystem) ([]value.Row, []agenterror.Warning) {
	perfMgr := performance.NewManager(client.Client)
	var rows []value.Row
	var warnings []agenterror.Warning
	names := []string{"cpu.usage.average", "mem.usage.average"}
	for _, h := range hosts {
		spec := types.PerfQuerySpec{
			Entity:     h.Reference(),
			MaxSample:  1,
			IntervalId: 20,
		}
		sample, err := perfMgr.SampleByName(ctx, spec, names, []types.ManagedObjectReference{h.Reference()})
		if err != nil {
			warnings = append(warnings, agenterror.NewWarning(agenterror.KindQuery, h.Reference().Value))
			continue
		}
		results, err := perfMgr.ToMetricSeries(ctx, sample)
		if err != nil {
			warnings = append(warnings, agenterror.NewWarning(agenterror.KindQuery, h.Reference().Value))
			continue
		}
		for _, res := range results {
			for _, v := range res.Value {
				if len(v.Value) == 0 {
					continue
				}
				rows = append(rows, value.Row{
					"entity":  value.DataOk(value.NewUnicodeString(h.Reference().Value)),
					"counter": value.DataOk(value.NewUnicodeString(v.Name)),
					"value":   value.DataOk(value.NewFloat(float64(v.Value[len(v.Value)-1]))),
				})
			}
		}
	}
	return rows, warnings
}
