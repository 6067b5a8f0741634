//go:build e2e

package e2e

import (
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
)

// EnvDirectory names the live directory the suite runs against.
const EnvDirectory = "HDS_E2E_DIRECTORY"

// GetDirectoryAddress returns the directory under test or skips the test.
func GetDirectoryAddress(t *testing.T) string {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv(EnvDirectory))
	if addr == "" {
		t.Skipf("%s not set; skipping e2e", EnvDirectory)
	}
	return addr
}

// LoadTestConfig reads ~/.hds/hdsview.yaml with HDS_* overrides so the suite
// uses the same trust and proxy settings as the CLI.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path, err := config.DefaultPath("hdsview.yaml")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if errs := cfg.ApplyEnv(); len(errs) > 0 {
		t.Fatalf("env overrides: %v", errs)
	}
	if cfg.Directory.RequestTimeout < 30*time.Second {
		cfg.Directory.RequestTimeout = 30 * time.Second
	}
	return cfg
}

// NewFactory builds a directory factory from the test config.
func NewFactory(t *testing.T, cfg *config.Config, reg *metrics.Registry) *directory.Factory {
	t.Helper()
	opts, err := directory.OptionsFromConfig(cfg, reg)
	if err != nil {
		t.Fatalf("directory options: %v", err)
	}
	return directory.NewFactory(opts, zap.NewNop())
}
