package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("server.addr", c.Server.Addr, notEmpty),
		criterio.Run("data_dir", c.DataDir, notEmpty),
		criterio.Run("persist.debounce", c.Persist.Debounce, positiveDuration),
		criterio.Run("sweep.interval", c.Sweep.Interval, positiveDuration),
		criterio.Run("sync.api_url", c.Sync.APIURL, validHTTPURL),
		criterio.Run("sync.auto_sync_delay", c.Sync.AutoSyncDelay, positiveDuration),
		criterio.Run("sync.user_timeout", c.Sync.UserTimeout, positiveDuration),
		criterio.Run("sync.repo_timeout", c.Sync.RepoTimeout, positiveDuration),
		criterio.Run("sync.file_timeout", c.Sync.FileTimeout, positiveDuration),
		c.validateRepoFilters(),
	)
}

// ValidateDeep performs Validate plus I/O checks against the filesystem.
// The configPath argument specifies the config file location to validate
// (empty string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func (c *Config) validateRepoFilters() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Sync.RepoFilters {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("sync.repo_filters[%d]", i), fmt.Errorf("invalid glob pattern: %q", pattern))
		}
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func notEmpty(v string) error {
	if v == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func positiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("must be a positive duration")
	}
	return nil
}

func validHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists but is not a directory", path)
	}
	return nil
}
