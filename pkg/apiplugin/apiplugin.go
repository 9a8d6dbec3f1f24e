// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package apiplugin is the shared skeleton every HTTPS/API plugin
// (azure, vmware, unity, proxmox, elastic, ldap) is built from:
// credential lookup, an HTTP client with shared TLS defaults, bounded
// concurrency over the plugin's unit of work, a per-metric-path timestamp
// file, parameter-type decoding into value.Value, and window aggregation.
package apiplugin

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/log"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// Credentials is whatever the key vault (or in-config identity block)
// resolves a protocol's auth handle to. Concrete plugins type-assert the
// shape they expect (basic, bearer, client-cert,...).
type Credentials map[string]interface{}

// CredentialSource resolves a credential handle, preferring the key vault
// and falling back to the in-config identity block.
type CredentialSource interface {
	Lookup(ctx context.Context, handle string) (Credentials, error)
}

// StaticCredentials is a CredentialSource over in-config credentials, used
// when no vault is configured.
type StaticCredentials map[string]Credentials

func (s StaticCredentials) Lookup(_ context.Context, handle string) (Credentials, error) {
	if c, ok := s[handle]; ok {
		return c, nil
	}
	return nil, agenterror.NewFatal(agenterror.KindAuthentication, "plugin", nil)
}

// TLSConfig mirrors the CA bundle / hostname-verification / client-cert
// knobs every API plugin's HTTP client accepts.
type TLSConfig struct {
	CABundlePath       string `json:"ca_bundle,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty"`
	ClientCertPath     string `json:"client_cert,omitempty"`
	ClientKeyPath      string `json:"client_key,omitempty"`
}

// NewHTTPClient builds an *http.Client with the defaults every API plugin
// shares: optional CA bundle, optional client cert, a 10s dial timeout, and
// a whole-request client timeout (30s when timeout is not positive).
func NewHTTPClient(cfg TLSConfig, timeout time.Duration) (*http.Client, error) {
	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CABundlePath != "" {
		pem, err := os.ReadFile(cfg.CABundlePath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", nil)
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	transport := &http.Transport{
		TLSClientConfig:     tlsCfg,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		MaxIdleConnsPerHost: 16,
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// DoRetry issues req through client, retrying transient failures
// (transport errors and 5xx responses) with exponential backoff. The
// request must have a nil or rewindable body.
func DoRetry(client *http.Client, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	op := func() error {
		r, err := client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("apiplugin: %s: status %d", req.URL.Host, r.StatusCode)
		}
		resp = r
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), req.Context())
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return resp, nil
}

// Parallelism maps a configured in-flight request count to a pool width:
// 8 when unset (<= 0), capped at 16; values from 1 to 16 are used as given.
func Parallelism(requested int) int {
	switch {
	case requested <= 0:
		return 8
	case requested > 16:
		return 16
	default:
		return requested
	}
}

// RunBounded runs one func(ctx) per item over a worker pool of width n.
// It returns after every started item has finished, in no particular order
// relative to items; once ctx is done no further items start and ctx.Err()
// is returned.
func RunBounded(ctx context.Context, n int, items int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		n = 1
	}
	sem := make(chan struct{}, n)
	var wg sync.WaitGroup
	errs := make([]error, items)
	for i := 0; i < items; i++ {
		i := i
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = fn(ctx, i)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// TimestampStore is the "newest observed timestamp per metric path" JSON
// file, one per plugin per host. It is the API-plugin analogue of
// counterstore.Store: loaded best-effort at plugin start, mutated during
// a cycle, flushed atomically at cycle end.
type TimestampStore struct {
	path string
	mu   sync.Mutex
	old  map[string]time.Time
	new  map[string]time.Time
}

// NewTimestampStore opens (without loading) a timestamp file at path.
func NewTimestampStore(path string) *TimestampStore {
	return &TimestampStore{path: path, old: map[string]time.Time{}, new: map[string]time.Time{}}
}

// Load reads the on-disk JSON map, tolerating absence or corruption by
// starting empty (mirrors counterstore.Store.Load).
func (s *TimestampStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warnf("timestamp store %s is corrupt, starting empty: %v", s.path, err)
		return nil
	}
	for k, v := range raw {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			continue
		}
		s.old[k] = t
	}
	return nil
}

// Since returns the `since=<ts>` cutoff for metricPath: the last observed
// timestamp, or now-15min for a cold start; stored values older than that
// floor are clamped to it.
func (s *TimestampStore) Since(metricPath string, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	floor := now.Add(-15 * time.Minute)
	if t, ok := s.old[metricPath]; ok && t.After(floor) {
		return t
	}
	return floor
}

// Observe records the newest timestamp seen for metricPath this cycle.
func (s *TimestampStore) Observe(metricPath string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.new[metricPath]; !ok || t.After(cur) {
		s.new[metricPath] = t
	}
}

// Flush atomically persists the cycle's observed timestamps (write-temp-
// then-rename, matching counterstore.Store.Flush), merging forward any
// metric path not touched this cycle.
func (s *TimestampStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make(map[string]string, len(s.old)+len(s.new))
	for k, t := range s.old {
		merged[k] = t.Format(time.RFC3339)
	}
	for k, t := range s.new {
		merged[k] = t.Format(time.RFC3339)
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Discard drops this cycle's observed timestamps without persisting them,
// used on plugin timeout.
func (s *TimestampStore) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.new = map[string]time.Time{}
}

// ParameterType names a per-field decoder kind.
type ParameterType string

const (
	ParamFloat      ParameterType = "float"
	ParamInteger    ParameterType = "integer"
	ParamString     ParameterType = "string"
	ParamBoolean    ParameterType = "boolean"
	ParamEnum       ParameterType = "enum"
	ParamTime       ParameterType = "time"
	ParamAge        ParameterType = "age"
	ParamIPAddress  ParameterType = "ip_address"
	ParamCounter    ParameterType = "counter"
	ParamDifference ParameterType = "difference"
)

// DecodeOpts carries the per-field decoding context: the choice set for
// Enum, the unit for Counter/Difference (so the resulting quantity carries
// dimension), and the counter store for the last two kinds.
type DecodeOpts struct {
	Choices *value.Choices
	Unit    unit.Unit
	Store   *counterstore.Store
	Key     string
	Now     time.Time
}

// Decode turns a raw sample (already untyped: float64, string, or bool;
// times as an RFC-3339 string or a numeric epoch-seconds value) into a Data
// cell per its parameter type.
func Decode(pt ParameterType, raw interface{}, opts DecodeOpts) value.Data {
	switch pt {
	case ParamFloat:
		f, ok := toFloat(raw)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		return value.DataOk(value.NewFloat(f))
	case ParamInteger:
		f, ok := toFloat(raw)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		return value.DataOk(value.NewInteger(int64(f)))
	case ParamString:
		s, ok := raw.(string)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		return value.DataOk(value.NewUnicodeString(s))
	case ParamBoolean:
		b, ok := raw.(bool)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		return value.DataOk(value.NewBoolean(b))
	case ParamEnum:
		s, ok := raw.(string)
		if !ok || opts.Choices == nil {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		v, err := value.NewEnum(opts.Choices, s)
		if err != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindInvalidChoice, err))
		}
		return value.DataOk(v)
	case ParamTime:
		return decodeTime(raw, opts.Key)
	case ParamAge:
		f, ok := toFloat(raw)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		return value.DataOk(value.NewAge(time.Duration(f) * time.Millisecond))
	case ParamIPAddress:
		s, ok := raw.(string)
		if !ok {
			return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
		}
		ip := net.ParseIP(s)
		if ip == nil {
			return value.DataErr(agenterror.Named(agenterror.KindAddrParseError, opts.Key))
		}
		if v4 := ip.To4(); v4 != nil {
			v, err := value.NewIpv4(v4)
			if err != nil {
				return value.DataErr(agenterror.Wrap(agenterror.KindAddrParseError, err))
			}
			return value.DataOk(v)
		}
		v, err := value.NewIpv6(ip)
		if err != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindAddrParseError, err))
		}
		return value.DataOk(v)
	case ParamCounter:
		return decodeCounterLike(raw, opts, true)
	case ParamDifference:
		return decodeCounterLike(raw, opts, false)
	default:
		return value.DataErr(agenterror.Named(agenterror.KindTypeError, string(pt)))
	}
}

func decodeTime(raw interface{}, key string) value.Data {
	switch v := raw.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return value.DataOk(value.NewTime(t))
		}
		return value.DataErr(agenterror.Named(agenterror.KindNumParseError, key))
	case float64:
		return value.DataOk(value.NewTime(time.Unix(int64(v), 0).UTC()))
	default:
		return value.DataErr(agenterror.Named(agenterror.KindValueError, key))
	}
}

// decodeCounterLike applies the difference law, then (for Counter) divides
// by the elapsed time to a per-second rate, the same normalization the
// SNMP engine's counter decoder performs: the value is computed in the
// display unit's dimension reference unit and converted to the display
// unit itself.
func decodeCounterLike(raw interface{}, opts DecodeOpts, rate bool) value.Data {
	f, ok := toFloat(raw)
	if !ok {
		return value.DataErr(agenterror.Named(agenterror.KindValueError, opts.Key))
	}
	if opts.Store == nil {
		return value.DataErr(agenterror.Named(agenterror.KindMissing, opts.Key))
	}
	delta, elapsed, err := opts.Store.Difference(opts.Key, uint64(f), opts.Now)
	if err != nil {
		return value.DataErr(asDataError(err))
	}
	out := float64(delta)
	if rate {
		secs := elapsed.Seconds()
		if secs <= 0 {
			return value.DataErr(agenterror.New(agenterror.KindDivisionByZero))
		}
		out /= secs
	}
	dim := opts.Unit.Dimension()
	ref, uerr := unit.NewUnit(dim, dim.ReferenceAtom())
	if uerr != nil {
		return value.DataErr(agenterror.Wrap(agenterror.KindValueError, uerr))
	}
	q := unit.NewQuantity(out, ref)
	if conv, cerr := q.Convert(opts.Unit); cerr == nil {
		q = conv
	}
	return value.DataOk(value.NewQuantity(q))
}

func asDataError(err error) *agenterror.DataError {
	if de, ok := err.(*agenterror.DataError); ok {
		return de
	}
	return agenterror.Wrap(agenterror.KindValueError, err)
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Aggregation names a multi-sample window reduction.
type Aggregation string

const (
	AggAverage Aggregation = "average"
	AggTotal   Aggregation = "total"
	AggCount   Aggregation = "count"
	AggMin     Aggregation = "min"
	AggMax     Aggregation = "max"
)

// Aggregate reduces samples per Aggregation. The engine always also
// requests Count so callers reconstruct Average as
// Total/Count when the API itself does not expose a mean; Aggregate here
// implements that reconstruction directly from the sample slice for
// plugins that fetch raw samples rather than a server-side aggregate.
func Aggregate(agg Aggregation, samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, agenterror.New(agenterror.KindMissing)
	}
	switch agg {
	case AggTotal:
		var sum float64
		for _, s := range samples {
			sum += s
		}
		return sum, nil
	case AggCount:
		return float64(len(samples)), nil
	case AggMin:
		m := samples[0]
		for _, s := range samples[1:] {
			if s < m {
				m = s
			}
		}
		return m, nil
	case AggMax:
		m := samples[0]
		for _, s := range samples[1:] {
			if s > m {
				m = s
			}
		}
		return m, nil
	case AggAverage, "":
		var sum float64
		for _, s := range samples {
			sum += s
		}
		return sum / float64(len(samples)), nil
	default:
		return 0, agenterror.New(agenterror.KindInvalidQuery)
	}
}
