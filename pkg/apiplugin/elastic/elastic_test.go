// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package elastic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/value"
)

func TestScalarLeafClassifiesJSONPrimitives(t *testing.T) {
	assert.True(t, scalarLeaf(float64(1)))
	assert.True(t, scalarLeaf("x"))
	assert.True(t, scalarLeaf(true))
	assert.True(t, scalarLeaf(nil))
	assert.False(t, scalarLeaf(map[string]interface{}{}))
	assert.False(t, scalarLeaf([]interface{}{}))
}

func TestAddParentsInjectsParentAndGrandparent(t *testing.T) {
	tree := map[string]interface{}{
		"nodes": map[string]interface{}{
			"node1": map[string]interface{}{
				"jvm": map[string]interface{}{"heap_used": float64(100)},
			},
		},
	}
	addParents(tree, "", "")

	nodes := tree["nodes"].(map[string]interface{})
	assert.Equal(t, "nodes", nodes["~"])

	node1 := nodes["node1"].(map[string]interface{})
	assert.Equal(t, "node1", node1["~"])
	assert.Equal(t, "nodes", node1["~~"])

	jvm := node1["jvm"].(map[string]interface{})
	assert.Equal(t, "jvm", jvm["~"])
	assert.Equal(t, "node1", jvm["~~"])
}

func TestFlattenEmitsOneRowPerScalarLeafWithAnnotations(t *testing.T) {
	tree := map[string]interface{}{
		"nodes": map[string]interface{}{
			"node1": map[string]interface{}{
				"heap_used": float64(100),
			},
		},
	}
	addParents(tree, "", "")

	var rows []value.Row
	flatten(tree, nil, &rows)
	require.Len(t, rows, 1)

	path, ok := rows[0]["path"].Value()
	require.True(t, ok)
	assert.Equal(t, "nodes.node1.heap_used", path.String())

	parent, ok := rows[0]["parent"].Value()
	require.True(t, ok)
	assert.Equal(t, "node1", parent.String())

	grandparent, ok := rows[0]["grandparent"].Value()
	require.True(t, ok)
	assert.Equal(t, "nodes", grandparent.String())
}

func TestJSONDataDecodesRawBytes(t *testing.T) {
	d := jsonData([]byte(`42`))
	v, ok := d.Value()
	require.True(t, ok)
	assert.NotNil(t, v)
}
