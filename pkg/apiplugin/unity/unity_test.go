// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package unity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricTypeAggregate(t *testing.T) {
	samples := []float64{10, 20, 30}

	assert.Equal(t, 60.0, MetricSum.Aggregate(samples))
	assert.Equal(t, 30.0, MetricCounter.Aggregate(samples))
	assert.Equal(t, 20.0, MetricAverage.Aggregate(samples))
	assert.Equal(t, 20.0, MetricRate.Aggregate(samples))
	assert.Equal(t, 20.0, MetricFact.Aggregate(samples))
}

func TestMetricTypeAggregateEmptySamples(t *testing.T) {
	assert.Equal(t, 0.0, MetricSum.Aggregate(nil))
	assert.Equal(t, 0.0, MetricAverage.Aggregate(nil))
}

func TestHALResponseNextHrefFindsRelNext(t *testing.T) {
	raw := `{"links":[{"rel":"self","href":"/a"},{"rel":"next","href":"/b?page=2"}]}`
	var page HALResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &page))

	href, ok := page.nextHref()
	require.True(t, ok)
	assert.Equal(t, "/b?page=2", href)
}

func TestHALResponseNextHrefAbsentWhenNoNextLink(t *testing.T) {
	raw := `{"links":[{"rel":"self","href":"/a"}]}`
	var page HALResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &page))

	_, ok := page.nextHref()
	assert.False(t, ok)
}
