// Package proxy routes directory connections through an optional SOCKS5
// proxy (e.g. a local Tor/Anyone client), bypassing it for local targets.
package proxy

import (
	"context"
	"net"
	"time"

	goproxy "golang.org/x/net/proxy"
)

// DefaultAddr is the conventional local SOCKS5 port.
const DefaultAddr = "127.0.0.1:9050"

// Dialer dials either directly or through a SOCKS5 proxy.
type Dialer struct {
	addr    string
	enabled bool
}

// New returns a Dialer. When enabled is false every connection is direct.
func New(addr string, enabled bool) *Dialer {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Dialer{addr: addr, enabled: enabled}
}

// Enabled reports whether proxy routing is active.
func (d *Dialer) Enabled() bool { return d != nil && d.enabled }

// Address returns the SOCKS5 address used for routing.
func (d *Dialer) Address() string { return d.addr }

// socksContextDialer dials a single connection over a SOCKS5 proxy.
type socksContextDialer struct{ addr string }

func (s *socksContextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	// Derive timeout from context deadline if present
	var timeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	base := &net.Dialer{Timeout: timeout}
	socksDialer, err := goproxy.SOCKS5("tcp", s.addr, nil, base)
	if err != nil {
		return nil, err
	}
	if cd, ok := socksDialer.(goproxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return socksDialer.Dial(network, address)
}

// Bypass reports whether addr (host or host:port) should be dialed directly:
// loopback, private and link-local addresses and "localhost".
func Bypass(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
	}
	return false
}

// DialContext matches http.Transport.DialContext.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if !d.Enabled() || Bypass(addr) {
		direct := &net.Dialer{}
		return direct.DialContext(ctx, network, addr)
	}
	s := &socksContextDialer{addr: d.addr}
	return s.DialContext(ctx, network, addr)
}

// Running returns true if the proxy is enabled and reachable at Address().
// It attempts a short TCP dial and returns false on failure.
func (d *Dialer) Running() bool {
	if !d.Enabled() {
		return false
	}
	conn, err := net.DialTimeout("tcp", d.addr, 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
