package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPathFromArgs(t *testing.T) {
	assert.Equal(t, "/a.yaml", configPathFromArgs([]string{"-addr", ":1", "-config", "/a.yaml"}))
	assert.Equal(t, "/b.yaml", configPathFromArgs([]string{"--config=/b.yaml"}))

	t.Setenv("HDS_INSPECTOR_CONFIG", "/c.yaml")
	assert.Equal(t, "/c.yaml", configPathFromArgs([]string{"-addr", ":1"}))
}

func TestParseInspectorConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HDS_CONFIG_DIR", dir)
	path := filepath.Join(dir, "inspector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"inspector:\n  listen_addr: \":7000\"\n  request_timeout: 5s\ndirectory:\n  default_host: file.example.org\n  request_timeout: 3s\n",
	), 0600))

	cfg, err := parseInspectorConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Inspector.ListenAddr)
	assert.Equal(t, "file.example.org", cfg.Directory.DefaultHost)
	assert.Equal(t, 3*time.Second, cfg.Directory.RequestTimeout)

	t.Setenv("HDS_INSPECTOR_ADDR", ":7100")
	t.Setenv("HDS_DIRECTORY", "env.example.org")
	cfg, err = parseInspectorConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Inspector.ListenAddr)
	assert.Equal(t, "env.example.org", cfg.Directory.DefaultHost)

	cfg, err = parseInspectorConfig([]string{"-addr", ":7200", "-launch", "#!/ext%2Bhds%3Ax.example.org"})
	require.NoError(t, err)
	assert.Equal(t, ":7200", cfg.Inspector.ListenAddr)
	assert.Equal(t, "#!/ext%2Bhds%3Ax.example.org", cfg.Inspector.LaunchURL)
}

func TestParseInspectorConfigRejectsInvalid(t *testing.T) {
	t.Setenv("HDS_CONFIG_DIR", t.TempDir())
	_, err := parseInspectorConfig([]string{"-https"})
	assert.Error(t, err, "https without a domain")
}
