// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandOutputIntoResultOkOnZeroExit(t *testing.T) {
	out := CommandOutput{ExitCode: 0}
	assert.NoError(t, out.IntoResult())
}

func TestCommandOutputIntoResultErrorsOnNonZeroExit(t *testing.T) {
	out := CommandOutput{ExitCode: 1, Stderr: "access denied"}
	err := out.IntoResult()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
