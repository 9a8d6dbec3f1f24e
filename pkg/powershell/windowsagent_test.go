// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameThenReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"kind":"powershell","script":"Get-Date"}`)

	require.NoError(t, writeFrame(&buf, payload))

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameErrorsOnTruncatedStream(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 10, 'a', 'b'})
	_, err := readFrame(buf)
	assert.Error(t, err)
}

func TestDialWindowsAgentRequiresCertificateCredentials(t *testing.T) {
	_, err := dialWindowsAgent(nil, WindowsAgentConfig{Credentials: &Credentials{Kind: CredBasic}})
	assert.Error(t, err)

	_, err = dialWindowsAgent(nil, WindowsAgentConfig{})
	assert.Error(t, err)
}
