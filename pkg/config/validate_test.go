package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorPaths(errs []error) []string {
	paths := make([]string, 0, len(errs))
	for _, err := range errs {
		if ve, ok := err.(ValidationError); ok {
			paths = append(paths, ve.Path)
		}
	}
	return paths
}

func TestDefaultConfigIsValid(t *testing.T) {
	errs := DefaultConfig().Validate()
	assert.Empty(t, errs)
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
	}{
		{"zero request timeout", func(c *Config) { c.Directory.RequestTimeout = 0 }, "directory.request_timeout"},
		{"negative fetch limit", func(c *Config) { c.Topology.MaxConcurrentFetches = -1 }, "topology.max_concurrent_fetches"},
		{"bad listen addr", func(c *Config) { c.Inspector.ListenAddr = "not an addr" }, "inspector.listen_addr"},
		{"empty listen addr", func(c *Config) { c.Inspector.ListenAddr = "" }, "inspector.listen_addr"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad proxy addr", func(c *Config) { c.Transport.ProxyAddr = "localhost" }, "transport.proxy_addr"},
		{"empty trusted domain", func(c *Config) { c.Transport.TrustedDomains = []string{""} }, "transport.trusted_domains[0]"},
		{"https without domain", func(c *Config) {
			c.Inspector.EnableHTTPS = true
			c.Inspector.TLSCacheDir = "/tmp/certs"
		}, "inspector.domain_name"},
		{"https without cache dir", func(c *Config) {
			c.Inspector.EnableHTTPS = true
			c.Inspector.DomainName = "hds.example.org"
		}, "inspector.tls_cache_dir"},
		{"proxy enabled without addr", func(c *Config) {
			c.Transport.ProxyEnabled = true
			c.Transport.ProxyAddr = ""
		}, "transport.proxy_addr"},
		{"whitespace host", func(c *Config) { c.Directory.DefaultHost = "example .org" }, "directory.default_host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Contains(t, errorPaths(errs), tt.wantPath)
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Path: "inspector.listen_addr", Message: "invalid", Hint: "use :8090"}
	assert.Equal(t, "inspector.listen_addr: invalid; use :8090", err.Error())
	assert.Equal(t, "a: b", ValidationError{Path: "a", Message: "b"}.Error())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDirectory:      " example.org ",
		EnvTimeout:        "3s",
		EnvParanoid:       "false",
		EnvTrustedDomains: "a.example.org, *.b.example.org ,",
		EnvProxy:          "127.0.0.1:9150",
		EnvMaxFetches:     "4",
		EnvLogLevel:       "DEBUG",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	errs := cfg.applyEnv(lookup)
	require.Empty(t, errs)

	assert.Equal(t, "example.org", cfg.Directory.DefaultHost)
	assert.Equal(t, 3*time.Second, cfg.Directory.RequestTimeout)
	assert.False(t, cfg.Directory.Paranoid)
	assert.Equal(t, []string{"a.example.org", "*.b.example.org"}, cfg.Transport.TrustedDomains)
	assert.True(t, cfg.Transport.ProxyEnabled)
	assert.Equal(t, "127.0.0.1:9150", cfg.Transport.ProxyAddr)
	assert.Equal(t, 4, cfg.Topology.MaxConcurrentFetches)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	env := map[string]string{
		EnvTimeout:    "soon",
		EnvParanoid:   "maybe",
		EnvMaxFetches: "many",
	}
	cfg := DefaultConfig()
	errs := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.ElementsMatch(t, []string{EnvTimeout, EnvParanoid, EnvMaxFetches}, errorPaths(errs))
	assert.Equal(t, 15*time.Second, cfg.Directory.RequestTimeout)
}

func TestDecodeStrictRejectsUnknownFields(t *testing.T) {
	cfg := DefaultConfig()
	err := DecodeStrict(strings.NewReader("directory:\n  bogus: 1\n"), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestDecodeStrictOverlaysDefaults(t *testing.T) {
	cfg := DefaultConfig()
	yml := "directory:\n  default_host: example.org:27012\n  request_timeout: 5s\ntopology:\n  max_concurrent_fetches: 8\n"
	require.NoError(t, DecodeStrict(strings.NewReader(yml), cfg))

	assert.Equal(t, "example.org:27012", cfg.Directory.DefaultHost)
	assert.Equal(t, 5*time.Second, cfg.Directory.RequestTimeout)
	assert.Equal(t, 8, cfg.Topology.MaxConcurrentFetches)
	assert.True(t, cfg.Directory.Paranoid, "unset keys keep their defaults")
	assert.Equal(t, ":8090", cfg.Inspector.ListenAddr)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir() + "/absent.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HDS_CONFIG_DIR", dir)

	got, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	path, err := DefaultPath("default.yaml")
	require.NoError(t, err)
	assert.Equal(t, dir+"/default.yaml", path)

	abs, err := DefaultPath("/etc/hds/hdsview.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/hds/hdsview.yaml", abs)
}
