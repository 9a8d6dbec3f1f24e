// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

//go:build windows

package wmiplugin

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/yusufpapurcu/wmi"
)

// RunQuery runs wql over DCOM, locally (or against cfg.Hostname with
// cfg.Username/Password when set), flattening each returned instance's
// properties to strings; the counter algebra in counters.go re-parses
// the typed values itself from those strings.
func RunQuery(ctx context.Context, cfg ProtoConfig, wql string) ([]map[string]string, error) {
	type result struct {
		rows []map[string]interface{}
		err  error
	}
	done := make(chan result, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
			done <- result{err: err}
			return
		}
		defer ole.CoUninitialize()

		var dst []map[string]interface{}
		var err error
		if cfg.Hostname != "" {
			err = wmi.Query(wql, &dst, cfg.Hostname, cfg.Namespace, cfg.Username, cfg.Password)
		} else {
			err = wmi.QueryNamespace(wql, &dst, cfg.Namespace)
		}
		done <- result{rows: dst, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		out := make([]map[string]string, 0, len(r.rows))
		for _, row := range r.rows {
			flat := make(map[string]string, len(row))
			for k, v := range row {
				flat[k] = fmt.Sprintf("%v", v)
			}
			out = append(out, flat)
		}
		return out, nil
	}
}
