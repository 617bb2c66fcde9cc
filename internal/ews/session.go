// Package ews speaks the HTTP+XML management protocol exposed by the
// embedded web server of HP network scanners: liveness probing, the walkup
// destination registry, the conditional event feed, and the scan job API.
//
// The protocol is undocumented; endpoint paths, status codes, and header
// requirements encoded here were derived from observed device traffic.
package ews

import (
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
)

// Default ports of the device APIs. The management API (destinations,
// events, device topology) and the scan job API live on different ports of
// the same host.
const (
	DefaultPort     = 80
	DefaultScanPort = 8080
)

// Session identifies one device and carries the state shared by every
// component talking to it: the address, the diagnostics flag, and the
// request sequence counter. Construct one per run; the address must not be
// changed while a request is in flight.
type Session struct {
	host     string
	port     int
	scanPort int
	debug    bool
	client   *http.Client
	seq      atomic.Uint64
}

// Option configures a Session.
type Option func(*Session)

// WithPorts overrides the management and scan API ports.
func WithPorts(port, scanPort int) Option {
	return func(s *Session) {
		if port > 0 {
			s.port = port
		}
		if scanPort > 0 {
			s.scanPort = scanPort
		}
	}
}

// WithDebug enables per-request diagnostics logging.
func WithDebug(debug bool) Option {
	return func(s *Session) { s.debug = debug }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.client = c }
}

// NewSession creates a Session for the device at host.
func NewSession(host string, opts ...Option) *Session {
	s := &Session{
		host:     host,
		port:     DefaultPort,
		scanPort: DefaultScanPort,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Host returns the device host.
func (s *Session) Host() string { return s.host }

// SetHost repoints the session at a different device. Must not be called
// with requests in flight.
func (s *Session) SetHost(host string) { s.host = host }

// BaseURL returns the management API base, e.g. "http://192.168.1.20".
func (s *Session) BaseURL() string {
	if s.port == DefaultPort {
		return "http://" + s.host
	}
	return "http://" + net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// ScanBaseURL returns the scan job API base on the secondary port.
func (s *Session) ScanBaseURL() string {
	return "http://" + net.JoinHostPort(s.host, strconv.Itoa(s.scanPort))
}

// ProbeAddr returns the host:port the reachability probe dials.
func (s *Session) ProbeAddr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}
