// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package sqlplugin

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestDecodeColumnByKind(t *testing.T) {
	assert.True(t, decodeColumn(int64(7), value.Integer()).IsOk())
	assert.True(t, decodeColumn(3.5, value.Float()).IsOk())
	assert.True(t, decodeColumn("hi", value.UnicodeString()).IsOk())
	assert.True(t, decodeColumn([]byte("hi"), value.UnicodeString()).IsOk())
	assert.False(t, decodeColumn("not-an-int", value.Integer()).IsOk())
}

func TestQueryTablePivotsRowsAndFlagsMissingColumns(t *testing.T) {
	db, mock := newMockDB(t)
	p := New(Catalog{})

	rows := sqlmock.NewRows([]string{"name", "used"}).
		AddRow("disk0", int64(42)).
		AddRow("disk1", nil)
	mock.ExpectQuery("SELECT name, used FROM disks").WillReturnRows(rows)

	table := TableSQL{
		Query: "SELECT name, used FROM disks",
		Fields: map[plugin.DataFieldId]FieldSQL{
			"name": {Column: "name", Type: value.UnicodeString(), IsKey: true},
			"used": {Column: "used", Type: value.Integer()},
		},
	}

	got, err := p.queryTable(context.Background(), db, table)
	require.NoError(t, err)
	require.Len(t, got, 2)

	name0, ok := got[0]["name"].Value()
	require.True(t, ok)
	assert.Equal(t, "disk0", name0.String())
	assert.True(t, got[0]["used"].IsOk())

	assert.False(t, got[1]["used"].IsOk())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscoverDatabasesUsesFixedListWhenNoQuery(t *testing.T) {
	db, _ := newMockDB(t)
	p := New(Catalog{})

	got, err := p.discoverDatabases(context.Background(), db, InstanceConfig{FixedDatabases: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestDiscoverDatabasesDefaultsToSingleEmptyDatabase(t *testing.T) {
	db, _ := newMockDB(t)
	p := New(Catalog{})

	got, err := p.discoverDatabases(context.Background(), db, InstanceConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestDiscoverDatabasesRunsDiscoveryQuery(t *testing.T) {
	db, mock := newMockDB(t)
	p := New(Catalog{})

	mock.ExpectQuery("SHOW DATABASES").WillReturnRows(
		sqlmock.NewRows([]string{"Database"}).AddRow("app1").AddRow("app2"),
	)

	got, err := p.discoverDatabases(context.Background(), db, InstanceConfig{DatabaseQuery: "SHOW DATABASES"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app1", "app2"}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
