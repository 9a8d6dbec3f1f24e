// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

//go:build !windows

package wmiplugin

import (
	"context"

	"github.com/smartagent/agent/pkg/agenterror"
)

// RunQuery has no DCOM transport off Windows; cross-compiled agent
// binaries that plan to query WMI targets run on Windows.
func RunQuery(ctx context.Context, cfg ProtoConfig, wql string) ([]map[string]string, error) {
	return nil, agenterror.New(agenterror.KindStoredWalkNotImplemented)
}
