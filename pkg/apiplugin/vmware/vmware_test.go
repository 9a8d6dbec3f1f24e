// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package vmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"
)

func TestSensorScaleAppliesUnitModifier(t *testing.T) {
	assert.Equal(t, 1.0, sensorScale(0))
	assert.Equal(t, 10.0, sensorScale(1))
	assert.InDelta(t, 0.1, sensorScale(-1), 1e-9)
}

func TestHealthLabelReadsElementDescription(t *testing.T) {
	state := types.ElementDescription{Description: types.Description{Label: "green"}}
	assert.Equal(t, "green", healthLabel(state))
	assert.Equal(t, "", healthLabel(nil))
}

func TestHostRowsDecodesNameStatusAndPowerState(t *testing.T) {
	hosts := []mo.HostSystem{
		{ManagedEntity: mo.ManagedEntity{Name: "esx01"}},
	}
	hosts[0].OverallStatus = types.ManagedEntityStatusGreen
	hosts[0].Runtime.PowerState = types.HostSystemPowerStatePoweredOn

	rows := hostRows(hosts)
	assert.Len(t, rows, 1)
	v, ok := rows[0]["name"].Value()
	assert.True(t, ok)
	assert.Equal(t, "esx01", v.String())
}

func TestLunPathRowsFlattensMultipath(t *testing.T) {
	host := mo.HostSystem{ManagedEntity: mo.ManagedEntity{Name: "esx01"}}
	host.Config = &types.HostConfigInfo{
		StorageDevice: &types.HostStorageDeviceInfo{
			MultipathInfo: &types.HostMultipathInfo{
				Lun: []types.HostMultipathInfoLogicalUnit{
					{
						Id: "lun-0",
						Path: []types.HostMultipathInfoPath{
							{Name: "path-0", PathState: "active"},
						},
					},
				},
			},
		},
	}

	rows := lunPathRows([]mo.HostSystem{host})
	assert.Len(t, rows, 1)
	lunKey, ok := rows[0]["lun_key"].Value()
	assert.True(t, ok)
	assert.Equal(t, "lun-0", lunKey.String())
}

func TestLunPathRowsSkipsHostsWithoutMultipathInfo(t *testing.T) {
	host := mo.HostSystem{ManagedEntity: mo.ManagedEntity{Name: "esx02"}}
	assert.Empty(t, lunPathRows([]mo.HostSystem{host}))
}
