// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package proxmox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/apiplugin"
)

func TestDistinctNodesDedupesPreservingOrder(t *testing.T) {
	resources := []clusterResource{
		{Node: "pve1"}, {Node: "pve2"}, {Node: "pve1"}, {Node: ""},
	}
	assert.Equal(t, []string{"pve1", "pve2"}, distinctNodes(resources))
}

func TestFetchResourcesDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api2/json/cluster/resources", r.URL.Path)
		assert.Equal(t, "PVEAPIToken=id=secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":"qemu/100","type":"qemu","node":"pve1","status":"running","cpu":0.1,"maxcpu":4,"mem":1024,"maxmem":4096}]}`))
	}))
	defer srv.Close()

	client, err := apiplugin.NewHTTPClient(apiplugin.TLSConfig{}, 0)
	require.NoError(t, err)
	p := &Plugin{Client: client}
	cfg := ProtoConfig{BaseURL: srv.URL, TokenID: "id", TokenSecret: "secret"}

	resources, err := p.fetchResources(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "qemu/100", resources[0].ID)
	assert.Equal(t, "pve1", resources[0].Node)
}

func TestFetchNodeStatusReportsOnlineWhenUptimePositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"uptime":12345}}`))
	}))
	defer srv.Close()

	client, err := apiplugin.NewHTTPClient(apiplugin.TLSConfig{}, 0)
	require.NoError(t, err)
	p := &Plugin{Client: client}
	cfg := ProtoConfig{BaseURL: srv.URL}

	status, err := p.fetchNodeStatus(context.Background(), cfg, "pve1")
	require.NoError(t, err)
	assert.Equal(t, "online", status)
}

func TestFetchNodeStatusReportsUnknownWhenUptimeZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"uptime":0}}`))
	}))
	defer srv.Close()

	client, err := apiplugin.NewHTTPClient(apiplugin.TLSConfig{}, 0)
	require.NoError(t, err)
	p := &Plugin{Client: client}
	cfg := ProtoConfig{BaseURL: srv.URL}

	status, err := p.fetchNodeStatus(context.Background(), cfg, "pve1")
	require.NoError(t, err)
	assert.Equal(t, "unknown", status)
}
