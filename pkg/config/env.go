package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvDirectory      = "HDS_DIRECTORY"
	EnvTimeout        = "HDS_TIMEOUT"
	EnvParanoid       = "HDS_PARANOID"
	EnvTrustedDomains = "HDS_TRUSTED_TLS_DOMAINS"
	EnvCACertPath     = "HDS_CA_CERT_PATH"
	EnvProxy          = "HDS_SOCKS5"
	EnvProxyDisable   = "HDS_PROXY_DISABLE"
	EnvMaxFetches     = "HDS_MAX_FETCHES"
	EnvInspectorAddr  = "HDS_INSPECTOR_ADDR"
	EnvLogLevel       = "HDS_LOG_LEVEL"
)

// ApplyEnv overlays HDS_* environment variables onto the config using
// os.LookupEnv.
func (c *Config) ApplyEnv() []error {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) []error {
	var errs []error

	if v, ok := lookup(EnvDirectory); ok && strings.TrimSpace(v) != "" {
		c.Directory.DefaultHost = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, ValidationError{Path: EnvTimeout, Message: err.Error(), Hint: "expected a duration such as 10s"})
		} else {
			c.Directory.RequestTimeout = d
		}
	}
	if v, ok := lookup(EnvParanoid); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Path: EnvParanoid, Message: err.Error(), Hint: "expected true or false"})
		} else {
			c.Directory.Paranoid = b
		}
	}
	if v, ok := lookup(EnvTrustedDomains); ok && v != "" {
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				c.Transport.TrustedDomains = append(c.Transport.TrustedDomains, d)
			}
		}
	}
	if v, ok := lookup(EnvCACertPath); ok && v != "" {
		c.Transport.CACertPath = v
	}
	if v, ok := lookup(EnvProxy); ok && v != "" {
		c.Transport.ProxyAddr = v
		c.Transport.ProxyEnabled = true
	}
	if v, ok := lookup(EnvProxyDisable); ok && (v == "1" || strings.EqualFold(v, "true")) {
		c.Transport.ProxyEnabled = false
	}
	if v, ok := lookup(EnvMaxFetches); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Path: EnvMaxFetches, Message: fmt.Sprintf("not a number: %q", v)})
		} else {
			c.Topology.MaxConcurrentFetches = n
		}
	}
	if v, ok := lookup(EnvInspectorAddr); ok && v != "" {
		c.Inspector.ListenAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	return errs
}
