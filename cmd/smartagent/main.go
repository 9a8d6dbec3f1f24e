// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Command smartagent is the collection agent's entry point.
package main

import (
	"fmt"
	"os"

	"github.com/smartagent/agent/cmd/smartagent/subcommands"
)

func main() {
	if err := subcommands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
