// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package azure

import (
	"regexp"
	"testing"

	armmonitor "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/stretchr/testify/assert"
)

func TestDiscoverResourcesFiltersByPattern(t *testing.T) {
	match := regexp.MustCompile(`^web\d+$`)
	assert.Equal(t, []string{"web01"}, discoverResources("web01", match))
	assert.Empty(t, discoverResources("db01", match))
}

func TestDimensionLabelJoinsMetadataValues(t *testing.T) {
	a, b := "east", "prod"
	ts := &armmonitor.TimeSeriesElement{
		Metadatavalues: []*armmonitor.MetadataValue{
			{Value: &a},
			{Value: &b},
			{Value: nil},
		},
	}
	assert.Equal(t, "east,prod", dimensionLabel(ts))
}

func TestDimensionLabelEmptyWhenNoMetadata(t *testing.T) {
	assert.Equal(t, "", dimensionLabel(nil))
	assert.Equal(t, "", dimensionLabel(&armmonitor.TimeSeriesElement{}))
}
