// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package counterstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
)

func TestCounterFirstSampleIsPending(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "counters.json"))
	_, err := s.Counter("k", 100, time.Now())
	require.Error(t, err)
	var de *agenterror.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, agenterror.KindCounterPending, de.Kind)
}

func TestCounterMonotoneDeltaIsNonNegative(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "counters.json"))
	t0 := time.Now()
	_, err := s.Counter("k", 1_000_000, t0)
	require.Error(t, err)

	delta, err := s.Counter("k", 1_090_000, t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(90_000), delta)
}

func TestCounterResetOverflows(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "counters.json"))
	t0 := time.Now()
	_, err := s.Counter("k", 1000, t0)
	require.Error(t, err)

	_, err = s.Counter("k", 500, t0.Add(time.Second))
	require.Error(t, err)
	var de *agenterror.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, agenterror.KindCounterOverflow, de.Kind)
}

func TestStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counters.json")
	t0 := time.Now()

	s1 := New(path)
	require.NoError(t, s1.Load())
	_, err := s1.Counter("k", 1000, t0)
	require.Error(t, err)
	require.NoError(t, s1.Flush())

	s2 := New(path)
	require.NoError(t, s2.Load())
	delta, err := s2.Counter("k", 1500, t0.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), delta)
}

func TestRateRequiresBothIncreasing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "rates.json"))
	t0 := time.Now()
	_, err := s.Rate("disk", 10, 100, t0)
	require.Error(t, err)

	rate, err := s.Rate("disk", 30, 300, t0.Add(time.Second))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, rate, 1e-9)

	_, err = s.Rate("disk", 40, 300, t0.Add(2*time.Second))
	require.Error(t, err)
	var de *agenterror.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, agenterror.KindCounterUndefined, de.Kind)
}

func TestCorruptFileLoadsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counters.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := New(path)
	require.NoError(t, s.Load())
	assert.Equal(t, 0, s.Len())
}
