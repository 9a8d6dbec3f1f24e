// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package counterstore implements the persistent counter/rate database:
// a `(key -> (prev_base, prev_value, prev_time))` store backing
// the counter/difference/rate parameter-type laws that SNMP, WMI, and API
// plugins consult on every sample.
package counterstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/log"
)

// Record is the persisted sample for one counter key.
type Record struct {
	PrevBase  uint64    `json:"prev_base"`
	PrevValue uint64    `json:"prev_value"`
	PrevTime  time.Time `json:"prev_time"`
}

// Store is a per-plugin counter database. It is loaded from disk once at
// plugin start, mutated under a single mutex during a collection cycle, and
// flushed atomically (write-temp-then-rename) on normal cycle completion. A
// crash between cycles leaves the previous snapshot intact.
type Store struct {
	path string

	mu      sync.Mutex
	records map[string]Record
	dirty   bool
}

// New creates a Store backed by path (one JSON file per plugin per host).
func New(path string) *Store {
	return &Store{path: path, records: make(map[string]Record)}
}

// Load reads the on-disk snapshot. A missing or corrupt file is logged and
// treated as empty rather than returned as an error, since a cold counter
// store is a normal startup state.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		log.Warnf("counterstore: reading %s: %v, starting empty", s.path, err)
		return nil
	}
	var records map[string]Record
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Warnf("counterstore: parsing %s: %v, starting empty", s.path, err)
		return nil
	}
	s.records = records
	return nil
}

// Flush atomically persists the store: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// produces a partially written snapshot.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := s.writeLocked(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) writeLocked() error {
	raw, err := json.Marshal(s.records)
	if err != nil {
		return fmt.Errorf("counterstore: marshal: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("counterstore: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".counterstore-*.tmp")
	if err != nil {
		return fmt.Errorf("counterstore: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("counterstore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("counterstore: fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("counterstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("counterstore: rename: %w", err)
	}
	return nil
}

// Discard drops any buffered updates without persisting them, restoring the
// last on-disk snapshot (an empty store when there is none). A timed-out
// plugin invocation must not persist counter updates so the next cycle's
// rates recompute from the previous snapshot: callers reload a
// fresh Store, or call Discard on one that was mutated speculatively.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
	s.records = make(map[string]Record)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var records map[string]Record
	if json.Unmarshal(raw, &records) == nil && records != nil {
		s.records = records
	}
}

// Counter implements the `counter(k, v, t)` law: the monotonic
// delta `v - v_prev`. Returns CounterPending on the first sample for key,
// CounterOverflow when v regresses below the previous sample.
func (s *Store) Counter(key string, v uint64, t time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[key]
	s.records[key] = Record{PrevValue: v, PrevTime: t}
	s.dirty = true
	if !ok {
		return 0, agenterror.New(agenterror.KindCounterPending)
	}
	if v < prev.PrevValue {
		return 0, agenterror.New(agenterror.KindCounterOverflow)
	}
	return v - prev.PrevValue, nil
}

// Difference implements the `difference(k, v, t)` law: identical to
// Counter, but the caller is responsible for normalizing by `t - t_prev`.
func (s *Store) Difference(key string, v uint64, t time.Time) (delta uint64, elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[key]
	s.records[key] = Record{PrevValue: v, PrevTime: t}
	s.dirty = true
	if !ok {
		return 0, 0, agenterror.New(agenterror.KindCounterPending)
	}
	if v < prev.PrevValue {
		return 0, 0, agenterror.New(agenterror.KindCounterOverflow)
	}
	return v - prev.PrevValue, t.Sub(prev.PrevTime), nil
}

// Rate implements the `rate(k, v, base, t)` law: `(v - v_prev) / (base -
// base_prev)` when both increments are positive. CounterPending
// on first sample; CounterOverflow when v regresses; CounterUndefined when
// base is non-monotonic (the denominator would be zero or negative).
func (s *Store) Rate(key string, v, base uint64, t time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.records[key]
	s.records[key] = Record{PrevBase: base, PrevValue: v, PrevTime: t}
	s.dirty = true
	if !ok {
		return 0, agenterror.New(agenterror.KindCounterPending)
	}
	if v < prev.PrevValue {
		return 0, agenterror.New(agenterror.KindCounterOverflow)
	}
	if base <= prev.PrevBase {
		return 0, agenterror.New(agenterror.KindCounterUndefined)
	}
	return float64(v-prev.PrevValue) / float64(base-prev.PrevBase), nil
}

// Len reports the number of keys currently tracked, mostly for tests and
// diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
