// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package sqlplugin implements the SQL protocol plugin:
// per-instance then per-database fan-out over ODBC-style connections
// (MySQL, SQL Server), a discovery query enumerating databases, one query
// per requested table per database, and one value row per result row.
// Fields marked IsKey are listed as the table's keys; no composite row key
// is built from them.
package sqlplugin

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

// Driver names the SQL backend.
type Driver string

const (
	DriverMySQL Driver = "mysql"
	DriverMSSQL Driver = "sqlserver"
)

// InstanceConfig is one SQL instance's protocol-config block.
type InstanceConfig struct {
	Driver         Driver `json:"driver"`
	DSN            string `json:"dsn"`
	DatabaseQuery  string `json:"database_query,omitempty"`
	FixedDatabases []string `json:"databases,omitempty"`
}

// ProtoConfig lists every SQL instance to fan out over.
type ProtoConfig struct {
	Instances []InstanceConfig `json:"instances"`
}

// TableSQL names one requested table's source query and field pivot
type TableSQL struct {
	Query  string
	Fields map[plugin.DataFieldId]FieldSQL
}

// FieldSQL binds one requested field to its column.
type FieldSQL struct {
	Column string
	Type   value.Type
	IsKey  bool
}

// Catalog maps this plugin's data-tables to their SQL source.
type Catalog struct {
	Tables map[plugin.DataTableId]TableSQL
}

// Plugin implements plugin.Plugin for protocol "sql".
type Plugin struct {
	Catalog Catalog
	// Open dials one *sqlx.DB for (driver, dsn); tests substitute a fake
	// via sqlmock.
	Open func(driver Driver, dsn string) (*sqlx.DB, error)
}

// New builds the SQL plugin over catalog.
func New(catalog Catalog) *Plugin {
	return &Plugin{Catalog: catalog, Open: defaultOpen}
}

func defaultOpen(driver Driver, dsn string) (*sqlx.DB, error) {
	return sqlx.Open(string(driver), dsn)
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "sql" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	out := make(map[plugin.DataTableId]plugin.TableSpec, len(p.Catalog.Tables))
	for id, t := range p.Catalog.Tables {
		ts := plugin.TableSpec{Name: string(id)}
		for fid, f := range t.Fields {
			ts.Fields = append(ts.Fields, fid)
			if f.IsKey {
				ts.Keys = append(ts.Keys, fid)
			}
		}
		out[id] = ts
	}
	return out, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	out := make(map[plugin.DataFieldId]plugin.FieldSpec)
	for _, t := range p.Catalog.Tables {
		for fid, f := range t.Fields {
			out[fid] = plugin.FieldSpec{Name: string(fid), Type: f.Type}
		}
	}
	return out, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	var sb strings.Builder
	for tableID := range tq {
		t, ok := p.Catalog.Tables[tableID]
		if !ok {
			continue
		}
		sb.WriteString(t.Query)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// RunQueries dials each configured instance, discovers its databases (or
// uses the fixed list), and for each database runs every requested
// table's query, turning each result row into a value row.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}

	rowsByTable := map[plugin.DataTableId][]value.Row{}
	var warnings []agenterror.Warning

	for _, inst := range cfg.Instances {
		db, err := p.Open(inst.Driver, inst.DSN)
		if err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindConnection, "plugin", err)), nil
		}

		databases, err := p.discoverDatabases(ctx, db, inst)
		if err != nil {
			warnings = append(warnings, agenterror.NewWarning(agenterror.KindQuery, inst.DSN))
			db.Close()
			continue
		}

		for _, database := range databases {
			dbConn, err := p.useDatabase(db, inst.Driver, database)
			if err != nil {
				warnings = append(warnings, agenterror.NewWarning(agenterror.KindConnection, database))
				continue
			}
			for tableID := range tq {
				tableSQL, ok := p.Catalog.Tables[tableID]
				if !ok {
					continue
				}
				rows, err := p.queryTable(ctx, dbConn, tableSQL)
				if err != nil {
					warnings = append(warnings, agenterror.NewWarning(agenterror.KindQuery, string(tableID)))
					continue
				}
				rowsByTable[tableID] = append(rowsByTable[tableID], rows...)
			}
			if dbConn != db {
				dbConn.Close()
			}
		}
		db.Close()
	}

	out := make(plugin.DataMap, len(tq))
	for tableID := range tq {
		out[tableID] = value.AnnotatedOk[plugin.RowSet](rowsByTable[tableID], warnings...)
	}
	return out, nil
}

// discoverDatabases runs the "discovery query" if configured,
// falling back to a fixed database list.
func (p *Plugin) discoverDatabases(ctx context.Context, db *sqlx.DB, inst InstanceConfig) ([]string, error) {
	if inst.DatabaseQuery == "" {
		if len(inst.FixedDatabases) > 0 {
			return inst.FixedDatabases, nil
		}
		return []string{""}, nil
	}
	rows, err := db.QueryxContext(ctx, inst.DatabaseQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil || len(cols) == 0 {
			continue
		}
		if s, ok := cols[0].(string); ok {
			out = append(out, s)
		}
	}
	return out, rows.Err()
}

// useDatabase issues USE <database> for MySQL and returns the same
// connection; for other drivers it returns the connection unchanged, so
// their queries run against the database the DSN selects. An empty name
// means the instance has no per-database fan-out.
func (p *Plugin) useDatabase(db *sqlx.DB, driver Driver, database string) (*sqlx.DB, error) {
	if database == "" {
		return db, nil
	}
	if driver == DriverMySQL {
		if _, err := db.Exec("USE " + database); err != nil {
			return nil, err
		}
		return db, nil
	}
	return db, nil
}

// queryTable issues one table's query and maps each result row to a value
// row. Fields marked IsKey are ordinary cells; no joined composite key is
// built. A column the table's query did not return, or a NULL, maps to a
// Missing cell for every field bound to it.
func (p *Plugin) queryTable(ctx context.Context, db *sqlx.DB, t TableSQL) ([]value.Row, error) {
	rawRows, err := db.QueryxContext(ctx, t.Query)
	if err != nil {
		return nil, err
	}
	defer rawRows.Close()

	var rows []value.Row
	for rawRows.Next() {
		cols, err := rawRows.SliceScan()
		if err != nil {
			continue
		}
		colNames, err := rawRows.Columns()
		if err != nil {
			continue
		}
		byCol := make(map[string]interface{}, len(colNames))
		for i, name := range colNames {
			if i < len(cols) {
				byCol[name] = cols[i]
			}
		}

		// Fields marked IsKey surface as ordinary row fields (their
		// DataTableId-level Keys list, per DescribeTables) rather than a
		// separate synthetic key column; the ETC calculator composes the
		// row identity from those fields itself.
		row := make(value.Row, len(t.Fields))
		for fid, f := range t.Fields {
			raw, ok := byCol[f.Column]
			if !ok || raw == nil {
				row[value.FieldId(fid)] = value.DataErr(agenterror.Named(agenterror.KindMissing, f.Column))
				continue
			}
			row[value.FieldId(fid)] = decodeColumn(raw, f.Type)
		}
		rows = append(rows, row)
	}
	return rows, rawRows.Err()
}

func decodeColumn(raw interface{}, t value.Type) value.Data {
	switch b := raw.(type) {
	case []byte:
		return decodeColumn(string(b), t)
	}
	switch t.Kind {
	case value.KindInteger:
		if i, ok := raw.(int64); ok {
			return value.DataOk(value.NewInteger(i))
		}
	case value.KindFloat:
		if f, ok := raw.(float64); ok {
			return value.DataOk(value.NewFloat(f))
		}
	case value.KindUnicodeString:
		if s, ok := raw.(string); ok {
			return value.DataOk(value.NewUnicodeString(s))
		}
	case value.KindBinaryString:
		if s, ok := raw.(string); ok {
			return value.DataOk(value.NewBinaryString(s))
		}
	}
	return value.DataErr(agenterror.New(agenterror.KindTypeError))
}
