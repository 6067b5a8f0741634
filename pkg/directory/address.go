package directory

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// DefaultPort is used when an address carries no port.
const DefaultPort = 27012

// DefaultScheme is used when an address carries no scheme.
const DefaultScheme = "https"

// Target is a normalized directory address.
type Target struct {
	Scheme string
	Host   string // hostname or IP literal, lower-cased, no brackets
	Port   int
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// BaseURL returns the API root, e.g. https://example.org:27012/_hds.
func (t Target) BaseURL() string {
	return t.Scheme + "://" + t.Address() + "/_hds"
}

// String returns scheme://host:port.
func (t Target) String() string {
	return t.Scheme + "://" + t.Address()
}

// NormalizeAddress parses a user-entered directory address. It accepts
// host, host:port, and http(s)://host[:port]. A missing port becomes
// DefaultPort and a missing scheme becomes https, so "example.org" and
// "example.org:27012" yield the same Target. A bare IPv6 literal such as
// "::1" is taken as a host without a port.
func NormalizeAddress(address string) (Target, error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return Target{}, errors.NewValidationError("address", "must not be empty", address)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		scheme, rest = DefaultScheme, raw
	}
	if hostPart := strings.TrimSuffix(rest, "/"); isBareIPv6(hostPart) {
		rest = "[" + hostPart + "]"
	}
	raw = scheme + "://" + rest

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, errors.NewValidationError("address", "not a valid host address", address)
	}

	scheme = strings.ToLower(u.Scheme)
	if scheme != "https" && scheme != "http" {
		return Target{}, errors.NewValidationError("address", "scheme must be http or https", address)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Target{}, errors.NewValidationError("address", "missing host", address)
	}
	if strings.ContainsAny(host, " \t") {
		return Target{}, errors.NewValidationError("address", "host must not contain whitespace", address)
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return Target{}, errors.NewValidationError("address", "not a valid IPv6 address", address)
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return Target{}, errors.NewValidationError("address", "port must be between 1 and 65535", address)
		}
		port = n
	}

	return Target{Scheme: scheme, Host: host, Port: port}, nil
}

func isBareIPv6(s string) bool {
	return strings.Contains(s, ":") && !strings.HasPrefix(s, "[") && net.ParseIP(s) != nil
}
