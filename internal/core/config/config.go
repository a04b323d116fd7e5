// Package config handles configuration loading and validation for taskflow.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Persist PersistConfig `yaml:"persist"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Sync    SyncConfig    `yaml:"sync"`
	DataDir string        `yaml:"-"` // set by caller, not from config file
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PersistConfig controls local snapshot persistence.
type PersistConfig struct {
	// Debounce is the quiet period after the last state change before the
	// snapshot is written.
	Debounce time.Duration `yaml:"debounce"`
	// WatchSnapshot reloads state when another process rewrites the
	// snapshot file.
	WatchSnapshot bool `yaml:"watch_snapshot"`
}

// SweepConfig controls the periodic overdue scan.
type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// SyncConfig controls remote synchronization.
type SyncConfig struct {
	// APIURL is the base URL of the remote file API.
	APIURL string `yaml:"api_url"`
	// AutoSyncDelay is how long after a task mutation an upload fires.
	AutoSyncDelay time.Duration `yaml:"auto_sync_delay"`
	// RepoFilters restricts the repositories offered for selection to those
	// whose full name matches one of these glob patterns. Empty means all.
	RepoFilters []string `yaml:"repo_filters"`
	// UserTimeout bounds the current-user lookup during connect.
	UserTimeout time.Duration `yaml:"user_timeout"`
	// RepoTimeout bounds repository listing during connect.
	RepoTimeout time.Duration `yaml:"repo_timeout"`
	// FileTimeout bounds each remote file read or write.
	FileTimeout time.Duration `yaml:"file_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8383",
		},
		Persist: PersistConfig{
			Debounce:      time.Second,
			WatchSnapshot: true,
		},
		Sweep: SweepConfig{
			Interval: time.Minute,
		},
		Sync: SyncConfig{
			APIURL:        "https://api.github.com",
			AutoSyncDelay: 2 * time.Second,
			UserTimeout:   10 * time.Second,
			RepoTimeout:   15 * time.Second,
			FileTimeout:   15 * time.Second,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Persist.Debounce == 0 {
		c.Persist.Debounce = defaults.Persist.Debounce
	}
	if c.Sweep.Interval == 0 {
		c.Sweep.Interval = defaults.Sweep.Interval
	}
	if c.Sync.APIURL == "" {
		c.Sync.APIURL = defaults.Sync.APIURL
	}
	if c.Sync.AutoSyncDelay == 0 {
		c.Sync.AutoSyncDelay = defaults.Sync.AutoSyncDelay
	}
	if c.Sync.UserTimeout == 0 {
		c.Sync.UserTimeout = defaults.Sync.UserTimeout
	}
	if c.Sync.RepoTimeout == 0 {
		c.Sync.RepoTimeout = defaults.Sync.RepoTimeout
	}
	if c.Sync.FileTimeout == 0 {
		c.Sync.FileTimeout = defaults.Sync.FileTimeout
	}
}
