// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package apiplugin

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

func TestParallelismClampsToEightSixteen(t *testing.T) {
	assert.Equal(t, 8, Parallelism(0))
	assert.Equal(t, 8, Parallelism(-3))
	assert.Equal(t, 12, Parallelism(12))
	assert.Equal(t, 16, Parallelism(64))
}

func TestRunBoundedRunsEveryItem(t *testing.T) {
	var seen [10]bool
	var mu sync.Mutex
	err := RunBounded(context.Background(), 3, 10, func(_ context.Context, i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	for i, ok := range seen {
		assert.Truef(t, ok, "item %d never ran", i)
	}
}

func TestRunBoundedPropagatesFirstError(t *testing.T) {
	boom := errors.New("boom")
	err := RunBounded(context.Background(), 2, 5, func(_ context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestStaticCredentialsLookup(t *testing.T) {
	creds := StaticCredentials{"primary": Credentials{"user": "admin"}}

	got, err := creds.Lookup(context.Background(), "primary")
	require.NoError(t, err)
	assert.Equal(t, "admin", got["user"])

	_, err = creds.Lookup(context.Background(), "missing")
	assert.Error(t, err)
}

func TestTimestampStoreSinceClampsToFifteenMinuteFloor(t *testing.T) {
	store := NewTimestampStore(filepath.Join(t.TempDir(), "ts.json"))
	require.NoError(t, store.Load())

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(-15*time.Minute), store.Since("metric.a", now))

	recent := now.Add(-1 * time.Minute)
	store.Observe("metric.a", recent)
	// Observe only updates the *new* map; Since still reads the *old* map
	// until a Flush/Load round-trip, matching counterstore's cycle shape.
	assert.Equal(t, now.Add(-15*time.Minute), store.Since("metric.a", now))
}

func TestTimestampStoreFlushThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts.json")
	store := NewTimestampStore(path)
	require.NoError(t, store.Load())

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-1 * time.Minute)
	store.Observe("metric.a", recent)
	require.NoError(t, store.Flush())

	reopened := NewTimestampStore(path)
	require.NoError(t, reopened.Load())
	assert.Equal(t, recent.Format(time.RFC3339), reopened.Since("metric.a", now).Format(time.RFC3339))
}

func TestTimestampStoreDiscardDropsUnflushedObservations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts.json")
	store := NewTimestampStore(path)
	require.NoError(t, store.Load())
	store.Observe("metric.a", time.Now())
	store.Discard()
	require.NoError(t, store.Flush())

	reopened := NewTimestampStore(path)
	require.NoError(t, reopened.Load())
	now := time.Now()
	assert.Equal(t, now.Add(-15*time.Minute).Format(time.RFC3339), reopened.Since("metric.a", now).Format(time.RFC3339))
}

func TestDecodeFloatAndInteger(t *testing.T) {
	d := Decode(ParamFloat, 3.5, DecodeOpts{Key: "x"})
	v, ok := d.Value()
	require.True(t, ok)
	assert.Equal(t, 3.5, mustFloat(t, v))

	d = Decode(ParamInteger, float64(42), DecodeOpts{Key: "x"})
	v, ok = d.Value()
	require.True(t, ok)
	assert.Equal(t, "42", v.String())
}

func TestDecodeEnumRejectsUnknownLabel(t *testing.T) {
	choices := value.NewChoices("up", "down")
	d := Decode(ParamEnum, "sideways", DecodeOpts{Key: "state", Choices: choices})
	assert.False(t, d.IsOk())
}

func TestDecodeEnumAcceptsKnownLabel(t *testing.T) {
	choices := value.NewChoices("up", "down")
	d := Decode(ParamEnum, "up", DecodeOpts{Key: "state", Choices: choices})
	require.True(t, d.IsOk())
}

func TestDecodeCounterComputesRateAgainstStore(t *testing.T) {
	store := counterstore.New(filepath.Join(t.TempDir(), "counters.json"))
	require.NoError(t, store.Load())

	base := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	opts := DecodeOpts{Key: "bytes_in", Store: store, Unit: unit.Unit{}, Now: base}

	first := Decode(ParamCounter, float64(100), opts)
	assert.False(t, first.IsOk()) // no prior sample yet

	opts.Now = base.Add(10 * time.Second)
	second := Decode(ParamCounter, float64(1100), opts)
	require.True(t, second.IsOk())
}

func TestAggregateReductions(t *testing.T) {
	samples := []float64{1, 2, 3, 4}

	total, err := Aggregate(AggTotal, samples)
	require.NoError(t, err)
	assert.Equal(t, 10.0, total)

	avg, err := Aggregate(AggAverage, samples)
	require.NoError(t, err)
	assert.Equal(t, 2.5, avg)

	count, err := Aggregate(AggCount, samples)
	require.NoError(t, err)
	assert.Equal(t, 4.0, count)

	min, err := Aggregate(AggMin, samples)
	require.NoError(t, err)
	assert.Equal(t, 1.0, min)

	max, err := Aggregate(AggMax, samples)
	require.NoError(t, err)
	assert.Equal(t, 4.0, max)

	_, err = Aggregate(AggAverage, nil)
	assert.Error(t, err)
}

func mustFloat(t *testing.T, v value.Value) float64 {
	t.Helper()
	f, err := strconv.ParseFloat(v.String(), 64)
	require.NoError(t, err)
	return f
}
