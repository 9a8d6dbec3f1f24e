// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package ldap implements the LDAP protocol plugin: bind, scoped search,
// and replication-agreement parsing (the nsDS5ReplicationAgreement search
// plus nsds5replicaLastUpdateStatus[JSON] decoding).
package ldap

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

const tableReplication plugin.DataTableId = "replication"

// replicationUpdateStatusRegex matches the legacy status attribute's
// "Error (<code>) <text>" form.
var replicationUpdateStatusRegex = regexp.MustCompile(`Error \((\d)\) (.*)`)

// ProtoConfig is the LDAP protocol-config block.
type ProtoConfig struct {
	URL                string   `json:"url"`
	BindDN             string   `json:"bind_dn"`
	BindPassword       string   `json:"bind_password"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify"`
	ReplicationBaseDNs []string `json:"replication_base_dns"`
	ReplicationSubtree bool     `json:"replication_subtree"`
}

// replicationStatus is the decoded nsds5replicaLastUpdateStatusJSON
// payload.
type replicationStatus struct {
	State      string    `json:"state"`
	LdapRC     string    `json:"ldap_rc"`
	LdapRCText string    `json:"ldap_rc_text"`
	ReplRC     string    `json:"repl_rc"`
	ReplRCText string    `json:"repl_rc_text"`
	Date       time.Time `json:"date"`
	Message    string    `json:"message"`
}

// Plugin implements plugin.Plugin for protocol "ldap".
type Plugin struct {
	Dial func(cfg ProtoConfig) (*ldap.Conn, error)
}

// New builds the LDAP plugin.
func New() *Plugin { return &Plugin{Dial: defaultDial} }

func defaultDial(cfg ProtoConfig) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}))
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "ldap" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	return map[plugin.DataTableId]plugin.TableSpec{
		tableReplication: {
			Name: "replication", Keys: []plugin.DataFieldId{"replica_agreement"},
			Fields: []plugin.DataFieldId{
				"replica_agreement", "status_code", "status_text", "state",
				"ldap_rc", "repl_rc", "message", "last_update",
			},
		},
	}, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	str := value.UnicodeString()
	return map[plugin.DataFieldId]plugin.FieldSpec{
		"replica_agreement": {Name: "replica_agreement", Type: str},
		"status_code":       {Name: "status_code", Type: value.Integer()},
		"status_text":       {Name: "status_text", Type: str},
		"state":             {Name: "state", Type: str},
		"ldap_rc":           {Name: "ldap_rc", Type: str},
		"repl_rc":           {Name: "repl_rc", Type: str},
		"message":           {Name: "message", Type: str},
		"last_update":       {Name: "last_update", Type: value.Time()},
	}, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	return "search (objectclass=nsDS5ReplicationAgreement) under each configured replication base DN", nil
}

// RunQueries binds, then for each configured replication base DN runs a
// scoped search for nsDS5ReplicationAgreement entries, decoding
// nsds5replicaLastUpdateStatus[JSON] on each result.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	if _, ok := tq[tableReplication]; !ok {
		return plugin.DataMap{}, nil
	}
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}
	conn, err := p.Dial(cfg)
	if err != nil {
		return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindAuthentication, "plugin", err)), nil
	}
	defer conn.Close()

	scope := ldap.ScopeBaseObject
	if cfg.ReplicationSubtree {
		scope = ldap.ScopeWholeSubtree
	}

	var rows []value.Row
	var warnings []agenterror.Warning
	for _, baseDN := range cfg.ReplicationBaseDNs {
		req := ldap.NewSearchRequest(baseDN, scope, ldap.NeverDerefAliases, 0, 0, false,
			"(objectclass=nsDS5ReplicationAgreement)",
			[]string{"nsds5replicaLastUpdateStatus", "nsds5replicaLastUpdateStatusJSON"}, nil)
		result, err := conn.Search(req)
		if err != nil {
			warnings = append(warnings, agenterror.NewWarning(agenterror.KindQuery, baseDN))
			continue
		}
		for _, entry := range result.Entries {
			rows = append(rows, replicationRow(entry, &warnings))
		}
	}
	return plugin.DataMap{tableReplication: value.AnnotatedOk[plugin.RowSet](rows, warnings...)}, nil
}

func replicationRow(entry *ldap.Entry, warnings *[]agenterror.Warning) value.Row {
	row := value.Row{
		"replica_agreement": value.DataOk(value.NewUnicodeString(entry.DN)),
	}

	if raw := entry.GetAttributeValue("nsds5replicaLastUpdateStatusJSON"); raw != "" {
		var status replicationStatus
		if err := json.Unmarshal([]byte(raw), &status); err != nil {
			*warnings = append(*warnings, agenterror.NewWarning(agenterror.KindValueError, entry.DN))
			row["state"] = value.DataErr(agenterror.New(agenterror.KindMissing))
		} else {
			row["state"] = value.DataOk(value.NewUnicodeString(status.State))
			row["ldap_rc"] = value.DataOk(value.NewUnicodeString(status.LdapRC))
			row["repl_rc"] = value.DataOk(value.NewUnicodeString(status.ReplRC))
			row["message"] = value.DataOk(value.NewUnicodeString(status.Message))
			row["last_update"] = value.DataOk(value.NewTime(status.Date))
		}
	} else {
		*warnings = append(*warnings, agenterror.NewWarning(agenterror.KindMissing, "nsds5replicaLastUpdateStatusJSON"))
		row["state"] = value.DataErr(agenterror.Named(agenterror.KindMissing, entry.DN))
	}

	if raw := entry.GetAttributeValue("nsds5replicaLastUpdateStatus"); raw != "" {
		m := replicationUpdateStatusRegex.FindStringSubmatch(raw)
		if m == nil {
			*warnings = append(*warnings, agenterror.NewWarning(agenterror.KindValueError, entry.DN))
			row["status_code"] = value.DataErr(agenterror.New(agenterror.KindValueError))
			row["status_text"] = value.DataErr(agenterror.New(agenterror.KindValueError))
		} else {
			code, _ := strconv.ParseInt(m[1], 10, 64)
			row["status_code"] = value.DataOk(value.NewInteger(code))
			row["status_text"] = value.DataOk(value.NewUnicodeString(m[2]))
		}
	} else {
		row["status_code"] = value.DataErr(agenterror.Named(agenterror.KindMissing, entry.DN))
		row["status_text"] = value.DataErr(agenterror.Named(agenterror.KindMissing, entry.DN))
	}
	return row
}

