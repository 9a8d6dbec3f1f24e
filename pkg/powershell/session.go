// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"context"
	"fmt"
)

// CommandOutput is one remote command's exit code plus captured
// stdout/stderr.
type CommandOutput struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// IntoResult treats a non-zero exit code as a command failure, not
// merely a value to report.
func (o CommandOutput) IntoResult() error {
	if o.ExitCode != 0 {
		return fmt.Errorf("powershell: command failed (exit %d): %s", o.ExitCode, o.Stderr)
	}
	return nil
}

// Session is the dual-transport PowerShell/WMI handle: run a script, or
// fetch WMI/CIM instances, regardless of which transport backs it.
type Session interface {
	RunPS(ctx context.Context, script string) (CommandOutput, error)
	GetWMIObject(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error)
	GetCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error)
	EnumerateCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error)
	Close() error
}
