package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

// configPathFromArgs finds -config before flag parsing so the file can seed
// the flag defaults.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name != "config" || !strings.HasPrefix(arg, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return getEnvDefault("HDS_INSPECTOR_CONFIG", "")
}

// parseInspectorConfig loads the inspector configuration.
// Priority: flags > env > file > defaults.
func parseInspectorConfig(args []string) (*config.Config, error) {
	path := configPathFromArgs(args)
	if path == "" {
		p, err := config.DefaultPath("inspector.yaml")
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if errs := cfg.ApplyEnv(); len(errs) > 0 {
		return nil, fmt.Errorf("environment: %v", errs[0])
	}

	fs := flag.NewFlagSet("inspector", flag.ContinueOnError)
	fs.String("config", path, "Config file (default ~/.hds/inspector.yaml)")
	addr := fs.String("addr", cfg.Inspector.ListenAddr, "HTTP listen address (e.g., :8090)")
	launch := fs.String("launch", getEnvDefault("HDS_LAUNCH_URL", cfg.Inspector.LaunchURL), "ext+hds link or #!/ fragment to connect to at startup")
	directory := fs.String("directory", cfg.Directory.DefaultHost, "Directory host to connect to at startup when no launch link is given")
	timeout := fs.Duration("timeout", cfg.Directory.RequestTimeout, "Per-request directory timeout")
	maxFetches := fs.Int("max-fetches", cfg.Topology.MaxConcurrentFetches, "Concurrent topic fetches during discovery (0 = unlimited)")
	https := fs.Bool("https", getEnvBoolDefault("HDS_INSPECTOR_HTTPS", cfg.Inspector.EnableHTTPS), "Serve HTTPS with Let's Encrypt")
	domain := fs.String("domain", getEnvDefault("HDS_INSPECTOR_DOMAIN", cfg.Inspector.DomainName), "Domain name for the certificate")
	tlsCache := fs.String("tls-cache", cfg.Inspector.TLSCacheDir, "Directory for cached certificates")
	logLevel := fs.String("log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", getEnvDefault("HDS_LOG_FORMAT", cfg.Logging.Format), "Log format (console, json)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Inspector.ListenAddr = *addr
	cfg.Inspector.LaunchURL = *launch
	cfg.Inspector.EnableHTTPS = *https
	cfg.Inspector.DomainName = *domain
	cfg.Inspector.TLSCacheDir = *tlsCache
	cfg.Directory.DefaultHost = *directory
	cfg.Directory.RequestTimeout = *timeout
	cfg.Topology.MaxConcurrentFetches = *maxFetches
	cfg.Logging.Level = *logLevel
	cfg.Logging.Format = *logFormat

	if cfg.Inspector.EnableHTTPS && cfg.Inspector.TLSCacheDir == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		cfg.Inspector.TLSCacheDir = filepath.Join(dir, "tls")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return cfg, nil
}

func logConfig(logger *logging.ColoredLogger, cfg *config.Config) {
	logger.ComponentInfo(logging.ComponentGeneral, "Loaded inspector configuration",
		zap.String("addr", cfg.Inspector.ListenAddr),
		zap.Bool("https", cfg.Inspector.EnableHTTPS),
		zap.String("directory", cfg.Directory.DefaultHost),
		zap.Duration("timeout", cfg.Directory.RequestTimeout),
		zap.Int("max_fetches", cfg.Topology.MaxConcurrentFetches),
		zap.Bool("proxy", cfg.Transport.ProxyEnabled),
		zap.String("config_dir", configDirOrEmpty()),
	)
}

func configDirOrEmpty() string {
	dir, _ := config.ConfigDir()
	return dir
}
