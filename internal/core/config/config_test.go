package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8383", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Persist.Debounce)
	assert.Equal(t, time.Minute, cfg.Sweep.Interval)
	assert.Equal(t, "https://api.github.com", cfg.Sync.APIURL)
	assert.Equal(t, 2*time.Second, cfg.Sync.AutoSyncDelay)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9000"
sweep:
  interval: 30s
sync:
  repo_filters:
    - "alice/*"
    - "team-*/**"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, []string{"alice/*", "team-*/**"}, cfg.Sync.RepoFilters)

	// Unset fields still get defaults.
	assert.Equal(t, time.Second, cfg.Persist.Debounce)
	assert.Equal(t, 10*time.Second, cfg.Sync.UserTimeout)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path, dir)
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = "" }},
		{name: "zero debounce", mutate: func(c *Config) { c.Persist.Debounce = 0 }},
		{name: "negative sweep interval", mutate: func(c *Config) { c.Sweep.Interval = -time.Second }},
		{name: "non-http api url", mutate: func(c *Config) { c.Sync.APIURL = "ftp://example.com" }},
		{name: "bad repo filter", mutate: func(c *Config) { c.Sync.RepoFilters = []string{"[unclosed"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateDeep(""))
}
