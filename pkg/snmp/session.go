// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"fmt"
	"net"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/smartagent/agent/pkg/agenterror"
)

// Session is the subset of an SNMP connection the worker pool drives. Each
// worker owns exactly one Session; sessions are not thread-safe.
type Session interface {
	Connect() error
	Close() error
	Get(oids []Oid) ([]Variable, error)
	GetNext(oids []Oid) ([]Variable, error)
	GetBulk(gets, walks []Oid, maxRepetitions int) ([]Variable, error)
}

// V3Credentials carries the USM authentication parameters for an SNMPv3
// session.
type V3Credentials struct {
	Username     string
	AuthProtocol string // "", "MD5", "SHA", "SHA256", ...
	AuthPassword string
	PrivProtocol string // "", "DES", "AES", ...
	PrivPassword string
}

// SessionConfig parameterizes a new session.
type SessionConfig struct {
	Target     string
	Port       uint16
	Version    gosnmp.SnmpVersion
	Community  string
	Context    string // SNMPv3 context name
	V3         *V3Credentials
	Timeout    time.Duration
	Retries    int
}

// gosnmpSession adapts *gosnmp.GoSNMP to the Session interface.
type gosnmpSession struct {
	conn *gosnmp.GoSNMP
}

// NewSession builds a Session backed by gosnmp for the given config. The
// session is not yet connected; call Connect before issuing requests.
func NewSession(cfg SessionConfig) (Session, error) {
	if net.ParseIP(cfg.Target) == nil {
		if _, err := net.LookupHost(cfg.Target); err != nil {
			return nil, fmt.Errorf("snmp: resolving target %q: %w", cfg.Target, err)
		}
	}
	conn := &gosnmp.GoSNMP{
		Target:      cfg.Target,
		Port:        cfg.Port,
		Version:     cfg.Version,
		Community:   cfg.Community,
		ContextName: cfg.Context,
		Timeout:     cfg.Timeout,
		Retries:     cfg.Retries,
		MaxOids:     60,
	}
	if cfg.Version == gosnmp.Version3 && cfg.V3 != nil {
		conn.SecurityModel = gosnmp.UserSecurityModel
		conn.MsgFlags = v3MsgFlags(cfg.V3)
		conn.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cfg.V3.Username,
			AuthenticationProtocol:   protocolFor(cfg.V3.AuthProtocol),
			AuthenticationPassphrase: cfg.V3.AuthPassword,
			PrivacyProtocol:          privProtocolFor(cfg.V3.PrivProtocol),
			PrivacyPassphrase:        cfg.V3.PrivPassword,
		}
	}
	return &gosnmpSession{conn: conn}, nil
}

func v3MsgFlags(v3 *V3Credentials) gosnmp.SnmpV3MsgFlags {
	switch {
	case v3.PrivProtocol != "":
		return gosnmp.AuthPriv
	case v3.AuthProtocol != "":
		return gosnmp.AuthNoPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func protocolFor(name string) gosnmp.SnmpV3AuthProtocol {
	switch name {
	case "SHA":
		return gosnmp.SHA
	case "SHA224":
		return gosnmp.SHA224
	case "SHA256":
		return gosnmp.SHA256
	case "SHA384":
		return gosnmp.SHA384
	case "SHA512":
		return gosnmp.SHA512
	case "MD5":
		return gosnmp.MD5
	default:
		return gosnmp.NoAuth
	}
}

func privProtocolFor(name string) gosnmp.SnmpV3PrivProtocol {
	switch name {
	case "DES":
		return gosnmp.DES
	case "AES":
		return gosnmp.AES
	case "AES192":
		return gosnmp.AES192
	case "AES256":
		return gosnmp.AES256
	default:
		return gosnmp.NoPriv
	}
}

func (s *gosnmpSession) Connect() error {
	if err := s.conn.Connect(); err != nil {
		return agenterror.Wrap(agenterror.KindConnection, err)
	}
	return nil
}

func (s *gosnmpSession) Close() error {
	return s.conn.Conn.Close()
}

func toOidStrings(oids []Oid) []string {
	out := make([]string, len(oids))
	for i, o := range oids {
		out[i] = o.String()
	}
	return out
}

func (s *gosnmpSession) Get(oids []Oid) ([]Variable, error) {
	if len(oids) == 0 {
		return nil, nil
	}
	pkt, err := s.conn.Get(toOidStrings(oids))
	if err != nil {
		return nil, agenterror.Wrap(agenterror.KindQuery, err)
	}
	return decodePDUs(pkt.Variables), nil
}

func (s *gosnmpSession) GetNext(oids []Oid) ([]Variable, error) {
	if len(oids) == 0 {
		return nil, nil
	}
	pkt, err := s.conn.GetNext(toOidStrings(oids))
	if err != nil {
		return nil, agenterror.Wrap(agenterror.KindQuery, err)
	}
	return decodePDUs(pkt.Variables), nil
}

func (s *gosnmpSession) GetBulk(gets, walks []Oid, maxRepetitions int) ([]Variable, error) {
	all := append(append([]Oid(nil), gets...), walks...)
	if len(all) == 0 {
		return nil, nil
	}
	nonRepeaters := uint8(len(gets))
	pkt, err := s.conn.GetBulk(toOidStrings(all), nonRepeaters, uint32(maxRepetitions))
	if err != nil {
		return nil, agenterror.Wrap(agenterror.KindQuery, err)
	}
	return decodePDUs(pkt.Variables), nil
}

func decodePDUs(pdus []gosnmp.SnmpPDU) []Variable {
	out := make([]Variable, 0, len(pdus))
	for _, p := range pdus {
		v := Variable{
			Oid:   Oid(trimLeadingDot(p.Name)),
			Type:  asn1BERName(p.Type),
			Value: p.Value,
		}
		switch p.Type {
		case gosnmp.EndOfMibView:
			v.EndOfView = true
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance:
			v.NoSuchObject = true
		}
		out = append(out, v)
	}
	return out
}

// asn1BERName names the PDU's ASN.1 tag for Variable.Type and the scalar
// decoder dispatch in decode.go; gosnmp.Asn1BER carries no String method.
func asn1BERName(t gosnmp.Asn1BER) string {
	switch t {
	case gosnmp.OctetString:
		return "OctetString"
	case gosnmp.IPAddress:
		return "IPAddress"
	case gosnmp.Integer:
		return "Integer"
	case gosnmp.Counter32:
		return "Counter32"
	case gosnmp.Counter64:
		return "Counter64"
	case gosnmp.Gauge32:
		return "Gauge32"
	case gosnmp.TimeTicks:
		return "TimeTicks"
	case gosnmp.ObjectIdentifier:
		return "ObjectIdentifier"
	case gosnmp.Boolean:
		return "Boolean"
	case gosnmp.Null:
		return "Null"
	case gosnmp.EndOfMibView:
		return "EndOfMibView"
	case gosnmp.NoSuchObject:
		return "NoSuchObject"
	case gosnmp.NoSuchInstance:
		return "NoSuchInstance"
	case gosnmp.Opaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

func trimLeadingDot(s string) string {
	if len(s) > 0 && s[0] == '.' {
		return s[1:]
	}
	return s
}
