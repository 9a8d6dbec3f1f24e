// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"context"
	"sync"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/log"
)

// slice is one GETBULK dispatch unit: a set of scalar gets and walks taken
// atomically off the shared queue.
type slice struct {
	gets  []*Get
	walks []*Walk
}

// fallbackItem is a slice that failed under the invalid_packets_at_end
// quirk and must be retried serially with GET/GETNEXT once bulk workers
// finish.
type fallbackItem struct {
	gets  []*Get
	walks []*Walk
}

// queue is the shared, mutex-guarded work queue a context's workers pull
// slices from.
type queue struct {
	mu       sync.Mutex
	gets     []*Get
	walks    []*Walk
	fallback []fallbackItem
}

// takeSlice implements the per-iteration slice-taking rule:
//  1. If invalid_packets_at_end is off, take up to max_width walks and fill
//     remaining width with gets.
//  2. Otherwise, take walks only.
func (q *queue) takeSlice(cfg Config, quirks Quirks) (slice, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.gets) == 0 && len(q.walks) == 0 {
		return slice{}, false
	}
	width := cfg.MaxWidth
	if width < 1 {
		width = 1
	}
	var s slice
	take := width
	if take > len(q.walks) {
		take = len(q.walks)
	}
	s.walks = append(s.walks, q.walks[:take]...)
	q.walks = q.walks[take:]
	remaining := width - len(s.walks)
	if !quirks.InvalidPacketsAtEnd && remaining > 0 {
		take = remaining
		if take > len(q.gets) {
			take = len(q.gets)
		}
		s.gets = append(s.gets, q.gets[:take]...)
		q.gets = q.gets[take:]
	}
	// Gets-only leftover when walks are exhausted and the quirk is off, or
	// any time no walk work remains.
	if len(s.walks) == 0 && len(s.gets) == 0 && len(q.gets) > 0 {
		take = width
		if take > len(q.gets) {
			take = len(q.gets)
		}
		s.gets = append(s.gets, q.gets[:take]...)
		q.gets = q.gets[take:]
	}
	return s, true
}

func (q *queue) requeueWalks(walks []*Walk) {
	if len(walks) == 0 {
		return
	}
	q.mu.Lock()
	q.walks = append(q.walks, walks...)
	q.mu.Unlock()
}

func (q *queue) pushFallback(item fallbackItem) {
	q.mu.Lock()
	q.fallback = append(q.fallback, item)
	q.mu.Unlock()
}

// isResponseError reports whether err is the class of transport error the
// invalid_packets_at_end quirk must route to serial fallback instead of
// aborting the cycle.
func isResponseError(err error) bool {
	var de *agenterror.DataError
	for e := err; e != nil; {
		if d, ok := e.(*agenterror.DataError); ok {
			de = d
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return de != nil && de.Kind == agenterror.KindQuery
}

// runWorker drains the shared queue, dispatching one GETBULK per slice and
// folding results back into the gets/walks it took.
func runWorker(ctx context.Context, sess Session, q *queue, cfg Config, quirks Quirks, stats *Stats) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s, ok := q.takeSlice(cfg, quirks)
		if !ok {
			return nil
		}
		width := len(s.gets) + len(s.walks)
		maxRep := cfg.MaxRepetitionsFn
		if maxRep == nil {
			maxRep = DefaultMaxRepetitions
		}
		expected := 10
		for _, w := range s.walks {
			if w.ExpectedLen > expected {
				expected = w.ExpectedLen
			}
		}
		reps := maxRep(expected, cfg.MaxSize, width)
		if cfg.MaxLength > 0 && reps > cfg.MaxLength {
			reps = cfg.MaxLength
		}

		getOids := make([]Oid, len(s.gets))
		for i, g := range s.gets {
			getOids[i] = g.Oid
		}
		walkOids := make([]Oid, len(s.walks))
		for i, w := range s.walks {
			walkOids[i] = w.LastOid
		}

		vars, err := sess.GetBulk(getOids, walkOids, reps)
		if err != nil {
			if quirks.InvalidPacketsAtEnd && isResponseError(err) {
				log.Warnf("snmp: response error on slice (width %d), moving to serial fallback", width)
				q.pushFallback(fallbackItem{gets: s.gets, walks: s.walks})
				continue
			}
			return err
		}
		applySliceResult(s, vars)
		for _, w := range s.walks {
			if w.Done() {
				stats.Observe(w.Root, w.Retrieved)
			} else {
				q.requeueWalks([]*Walk{w})
			}
		}
	}
}

// applySliceResult interleaves a GETBULK response into the gets (first)
// and walks (round-robin) that produced it.
func applySliceResult(s slice, vars []Variable) {
	i := 0
	for _, g := range s.gets {
		if i >= len(vars) {
			g.Invalid = true
			continue
		}
		v := vars[i]
		i++
		if v.NoSuchObject || v.EndOfView {
			g.Invalid = true
			continue
		}
		vv := v
		g.Result = &vv
	}
	remaining := vars[i:]
	if len(s.walks) == 0 {
		return
	}
	perWalk := make([][]Variable, len(s.walks))
	// round-robin: remaining variables arrive in repeating groups across
	// the walks dispatched in this slice.
	for j, v := range remaining {
		widx := j % len(s.walks)
		perWalk[widx] = append(perWalk[widx], v)
	}
	for idx, w := range s.walks {
		w.Advance(perWalk[idx])
	}
}

// runContext executes one ContextPlan to completion: spins up cfg.Workers
// goroutines racing the shared queue, then drains the serial fallback
// queue, then verifies any walk that ended with zero rows.
func runContext(ctx context.Context, sessions []Session, cp *ContextPlan, cfg Config, quirks Quirks, stats *Stats) error {
	q := &queue{gets: append([]*Get(nil), cp.Gets...)}
	for _, wt := range cp.Walks {
		q.walks = append(q.walks, wt.Walks...)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(sessions))
	for _, sess := range sessions {
		wg.Add(1)
		go func(s Session) {
			defer wg.Done()
			if err := runWorker(ctx, s, q, cfg, quirks, stats); err != nil {
				errs <- err
			}
		}(sess)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	if len(sessions) == 0 {
		return nil
	}
	serial := sessions[0]
	for _, item := range q.fallback {
		if err := runFallback(serial, item); err != nil {
			return err
		}
	}

	return verifyEmptyWalks(serial, cp)
}

// runFallback processes one quirk-routed slice with plain GET/GETNEXT
// instead of GETBULK.
func runFallback(sess Session, item fallbackItem) error {
	if len(item.gets) > 0 {
		oids := make([]Oid, len(item.gets))
		for i, g := range item.gets {
			oids[i] = g.Oid
		}
		vars, err := sess.Get(oids)
		if err != nil {
			return err
		}
		for i, g := range item.gets {
			if i < len(vars) {
				vv := vars[i]
				g.Result = &vv
			}
		}
	}
	for _, w := range item.walks {
		for !w.Done() {
			vars, err := sess.GetNext([]Oid{w.LastOid})
			if err != nil {
				return err
			}
			if len(vars) == 0 {
				w.State = walkDone
				break
			}
			w.Advance(vars)
		}
	}
	return nil
}

// verifyEmptyWalks confirms existence of any walk that retrieved zero rows
// via a GET on the table root.
func verifyEmptyWalks(sess Session, cp *ContextPlan) error {
	for _, wt := range cp.Walks {
		for _, w := range wt.Walks {
			if w.Retrieved > 0 {
				w.State = walkRetained
				continue
			}
			vars, err := sess.Get([]Oid{w.Root})
			if err != nil {
				w.State = walkDoneInvalid
				continue
			}
			if len(vars) == 0 || vars[0].NoSuchObject {
				w.State = walkVerifiedEmpty
				continue
			}
			w.Rows[""] = vars[0]
			w.State = walkRetained
		}
	}
	return nil
}
