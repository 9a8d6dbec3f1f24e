// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package subcommands

import (
	"fmt"
	"io"
	"sort"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/etc"
)

// renderItems writes one line per computed field, grouped by table and
// item identity.
func renderItems(w io.Writer, items map[string][]etc.Item, warnings []agenterror.Warning) {
	tables := make([]string, 0, len(items))
	for id := range items {
		tables = append(tables, id)
	}
	sort.Strings(tables)

	for _, tableID := range tables {
		for _, item := range items[tableID] {
			identity := tableID
			if v, ok := item.ItemName.Value(); ok {
				identity += "[" + v.String() + "]"
			} else if v, ok := item.ItemID.Value(); ok {
				identity += "[" + v.String() + "]"
			}

			fields := make([]string, 0, len(item.Fields))
			for id := range item.Fields {
				fields = append(fields, id)
			}
			sort.Strings(fields)

			for _, fieldID := range fields {
				d := item.Fields[fieldID]
				if v, ok := d.Value(); ok {
					fmt.Fprintf(w, "%s.%s = %s\n", identity, fieldID, v.String())
				} else {
					fmt.Fprintf(w, "%s.%s ! %s\n", identity, fieldID, d.Error().Error())
				}
			}
		}
	}

	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn.String())
	}
}
