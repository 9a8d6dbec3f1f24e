// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
)

func TestTakeSliceRespectsMaxWidth(t *testing.T) {
	q := &queue{}
	for i := 0; i < 5; i++ {
		q.gets = append(q.gets, &Get{Oid: Oid("1.1.1")})
	}
	for i := 0; i < 5; i++ {
		q.walks = append(q.walks, NewWalk(Oid("1.2"), 10))
	}

	s, ok := q.takeSlice(Config{MaxWidth: 3}, Quirks{})
	require.True(t, ok)
	assert.LessOrEqual(t, len(s.gets)+len(s.walks), 3)
}

func TestTakeSliceWalksOnlyUnderQuirk(t *testing.T) {
	q := &queue{}
	q.gets = append(q.gets, &Get{Oid: Oid("1.1.1")})
	q.walks = append(q.walks, NewWalk(Oid("1.2"), 10))

	s, ok := q.takeSlice(Config{MaxWidth: 5}, Quirks{InvalidPacketsAtEnd: true})
	require.True(t, ok)
	assert.Empty(t, s.gets, "gets must not be mixed with walks under invalid_packets_at_end")
	assert.Len(t, s.walks, 1)
}

// fakeSession simulates a tiny agent with one scalar OID and one walked
// table, optionally failing the first GetBulk to exercise the fallback
// queue.
type fakeSession struct {
	failOnce    bool
	failed      bool
	bulkCalls   int
	tableRows   map[string]string // index -> value, under root "1.3.6.1.2.1.2.2.1.2"
	scalarValue string
}

func (f *fakeSession) Connect() error { return nil }
func (f *fakeSession) Close() error   { return nil }

func (f *fakeSession) Get(oids []Oid) ([]Variable, error) {
	out := make([]Variable, 0, len(oids))
	for _, o := range oids {
		if string(o) == "1.3.6.1.2.1.1.3" {
			out = append(out, Variable{Oid: o, Type: "OctetString", Value: []byte(f.scalarValue)})
		} else {
			out = append(out, Variable{Oid: o, NoSuchObject: true})
		}
	}
	return out, nil
}

func (f *fakeSession) GetNext(oids []Oid) ([]Variable, error) { return nil, nil }

func (f *fakeSession) GetBulk(gets, walks []Oid, maxRepetitions int) ([]Variable, error) {
	f.bulkCalls++
	if f.failOnce && !f.failed {
		f.failed = true
		return nil, agenterror.New(agenterror.KindQuery)
	}
	var out []Variable
	for _, o := range gets {
		out = append(out, Variable{Oid: o, Type: "OctetString", Value: []byte(f.scalarValue)})
	}
	for range walks {
		for idx, v := range f.tableRows {
			out = append(out, Variable{Oid: Oid("1.3.6.1.2.1.2.2.1.2." + idx), Type: "OctetString", Value: []byte(v)})
		}
		out = append(out, Variable{Oid: "1.3.6.1.2.1.2.2.1.3.999", EndOfView: true})
	}
	return out, nil
}

func TestRunContextRecoversFromResponseErrorUnderQuirk(t *testing.T) {
	sess := &fakeSession{failOnce: true, tableRows: map[string]string{"1": "eth0"}}
	cp := &ContextPlan{
		walkField: map[*Walk]fieldRef{},
		getField:  map[*Get]fieldRef{},
	}
	w := NewWalk(Oid("1.3.6.1.2.1.2.2.1.2"), 5)
	wt := &WalkTable{Walks: []*Walk{w}}
	cp.Walks = []*WalkTable{wt}
	cp.walkField[w] = fieldRef{table: "ifTable", field: "ifDescr"}

	cfg := Config{Workers: 1, MaxWidth: 5, MaxSize: 1400}
	err := runContext(context.Background(), []Session{sess}, cp, cfg, Quirks{InvalidPacketsAtEnd: true}, NewStats())
	require.NoError(t, err)
	assert.True(t, sess.failed)
	assert.Equal(t, 1, sess.bulkCalls, "the failed slice is retried via the serial fallback path, not GetBulk again")
	assert.True(t, w.Done(), "the walk reappears in serial fallback exactly once and completes there")
}
