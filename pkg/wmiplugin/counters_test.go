// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package wmiplugin

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/counterstore"
)

func newStore(t *testing.T) *counterstore.Store {
	t.Helper()
	store := counterstore.New(filepath.Join(t.TempDir(), "counters.json"))
	require.NoError(t, store.Load())
	return store
}

func TestNewMetadataDefaultsFrequenciesAndTimestamps(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	meta, err := NewMetadata(map[string]string{}, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, meta.FreqTime)
	assert.EqualValues(t, 1, meta.FreqSyn)
	assert.EqualValues(t, 1, meta.FreqObj)
	assert.EqualValues(t, now.Unix(), meta.TsTime)
	assert.EqualValues(t, now.Unix(), meta.TsSyn)
	assert.EqualValues(t, now.Unix(), meta.TsObj)
}

func TestNewMetadataParsesPresentFields(t *testing.T) {
	now := time.Now()
	instance := map[string]string{
		"Frequency_PerfTime": "10000000",
		"Timestamp_PerfTime": "123456",
	}
	meta, err := NewMetadata(instance, now)
	require.NoError(t, err)
	assert.EqualValues(t, 10000000, meta.FreqTime)
	assert.EqualValues(t, 123456, meta.TsTime)
}

func TestNewMetadataRejectsUnparseableField(t *testing.T) {
	_, err := NewMetadata(map[string]string{"Frequency_PerfTime": "not-a-number"}, time.Now())
	assert.Error(t, err)
}

func TestRequiresBaseMatchesTable(t *testing.T) {
	assert.True(t, RequiresBase(CounterRawFraction))
	assert.True(t, RequiresBase(CounterAverageBulk))
	assert.False(t, RequiresBase(CounterRawcount))
}

func TestEvaluateCounterTextReturnsRawString(t *testing.T) {
	v, err := Evaluate(CounterText, "k", "Name", map[string]string{"Name": "disk0"}, newStore(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "disk0", v.String())
}

func TestEvaluateRawFractionDividesByBase(t *testing.T) {
	instance := map[string]string{"Busy": "50", "Busy_Base": "200"}
	v, err := Evaluate(CounterRawFraction, "k", "Busy", instance, newStore(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.25", v.String())
}

func TestEvaluateRawFractionMissingBaseErrors(t *testing.T) {
	instance := map[string]string{"Busy": "50"}
	_, err := Evaluate(CounterRawFraction, "k", "Busy", instance, newStore(t), time.Now())
	assert.Error(t, err)
}

func TestEvaluateDeltaAccumulatesAgainstStore(t *testing.T) {
	store := newStore(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_, err := Evaluate(CounterDelta, "k", "Bytes", map[string]string{"Bytes": "100"}, store, now)
	assert.Error(t, err) // first sample is CounterPending

	v, err := Evaluate(CounterDelta, "k", "Bytes", map[string]string{"Bytes": "150"}, store, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "50", v.String())
}

func TestEvaluateMissingPropertyErrors(t *testing.T) {
	_, err := Evaluate(CounterRawcount, "k", "Missing", map[string]string{}, newStore(t), time.Now())
	assert.Error(t, err)
}

func TestEvaluateDefaultParsesPlainInteger(t *testing.T) {
	v, err := Evaluate(CounterRawcount, "k", "Queue", map[string]string{"Queue": "7"}, newStore(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "7", v.String())
}

func TestEvaluateElapsedTimeComputesFromObjectFrequency(t *testing.T) {
	instance := map[string]string{
		"Started":           "100",
		"Frequency_Object":  "2",
		"Timestamp_Object":  "300",
	}
	v, err := Evaluate(CounterElapsedTime, "k", "Started", instance, newStore(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "100", v.String())
}
