// Package tlsutil provides TLS configuration for directory hosts, trusting
// specific domains that serve self-signed certificates.
package tlsutil

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// DialContextFunc dials a TCP connection; pkg/proxy supplies a SOCKS5 one.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Trust holds the trusted domain list and optional CA pool.
type Trust struct {
	trustedDomains []string
	caCertPool     *x509.CertPool
}

// Options configures a Trust.
type Options struct {
	TrustedDomains []string
	CACertPath     string
}

// New builds a Trust. A CACertPath that cannot be read or parsed is an error;
// an empty path means the system pool is used.
func New(opts Options) (*Trust, error) {
	t := &Trust{}
	for _, d := range opts.TrustedDomains {
		d = strings.TrimSpace(d)
		if d != "" {
			t.trustedDomains = append(t.trustedDomains, d)
		}
	}

	if opts.CACertPath != "" {
		caCertData, err := os.ReadFile(opts.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate %s: %w", opts.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCertData) {
			return nil, fmt.Errorf("no certificates found in %s", opts.CACertPath)
		}
		t.caCertPool = pool
	}

	return t, nil
}

// TrustedDomains returns the list of domains to skip TLS verification for
func (t *Trust) TrustedDomains() []string {
	return t.trustedDomains
}

// ShouldSkipTLSVerify checks if TLS verification should be skipped for this domain
func (t *Trust) ShouldSkipTLSVerify(domain string) bool {
	for _, trusted := range t.trustedDomains {
		if strings.HasPrefix(trusted, "*.") {
			// Handle wildcards like *.example.org
			suffix := strings.TrimPrefix(trusted, "*")
			if strings.HasSuffix(domain, suffix) || domain == strings.TrimPrefix(suffix, ".") {
				return true
			}
		} else if domain == trusted {
			return true
		}
	}
	return false
}

// TLSConfigFor returns a TLS config for connecting to hostname. Verification
// is skipped only for trusted domains when no CA pool is configured.
func (t *Trust) TLSConfigFor(hostname string) *tls.Config {
	config := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: hostname,
	}

	if t.caCertPool != nil {
		config.RootCAs = t.caCertPool
	} else if t.ShouldSkipTLSVerify(hostname) {
		config.InsecureSkipVerify = true
	}

	return config
}

// NewHTTPClientForDomain creates an HTTP client configured for a specific
// domain. dial may be nil to use a plain net.Dialer.
func (t *Trust) NewHTTPClientForDomain(timeout time.Duration, hostname string, dial DialContextFunc) *http.Client {
	if dial == nil {
		dial = (&net.Dialer{Timeout: 10 * time.Second}).DialContext
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig:     t.TLSConfigFor(hostname),
			DialContext:         dial,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
