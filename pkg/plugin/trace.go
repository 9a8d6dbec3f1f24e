// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package plugin

import "github.com/google/uuid"

// InvocationID correlates one RunQueries call across a plugin's own log
// lines and the caller's.
type InvocationID string

// NewInvocationID mints a fresh correlation id.
func NewInvocationID() InvocationID {
	return InvocationID(uuid.NewString())
}
