// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsExpectedLenFallsBackToDefault(t *testing.T) {
	s := NewStats()
	assert.Equal(t, 42, s.ExpectedLen("1.3.6.1.2.1.2.2", 42))
}

func TestStatsTracksObservedLengths(t *testing.T) {
	s := NewStats()
	root := Oid("1.3.6.1.2.1.2.2")
	for _, n := range []int{10, 12, 11, 50, 11, 9, 10} {
		s.Observe(root, n)
	}
	// p99 (12: the quantile index rounds down, so the lone outlier 50 is not
	// reached with 7 samples) never falls below p50 (11).
	assert.GreaterOrEqual(t, s.ExpectedLen(root, 0), s.MedianLen(root, 0))
}
