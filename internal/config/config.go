// Package config handles the optional updater configuration file and its
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables recognized by the updater.
const (
	// EnvDisableUpdates force-disables update checks when set to "1" or "true".
	EnvDisableUpdates = "TWITCHDESK_DISABLE_UPDATES"
	// EnvUpdateRepo overrides the release repository, in the form owner/repo.
	EnvUpdateRepo = "TWITCHDESK_UPDATE_REPO"
	// EnvConfigFile points at an explicit config file.
	EnvConfigFile = "TWITCHDESK_UPDATE_CONFIG"
)

// Defaults used when neither the config file nor the environment say otherwise.
const (
	DefaultRepository           = "twitchdesk/twitchdesk-desktop"
	DefaultAPIBaseURL           = "https://api.github.com"
	DefaultRequestTimeoutSecond = 25
	DefaultDownloadTimeoutSecs  = 600
	DefaultRetryAttempts        = 30
	DefaultRetryIntervalMillis  = 250
	DefaultCheckIntervalMinutes = 60
	DefaultKeepVersions         = 2
	DefaultLogLevel             = "info"
)

// configDirName is the per-user directory under os.UserConfigDir.
const configDirName = "TwitchDesk"

// candidateNames are the file names looked up in the config directory, in order.
var candidateNames = []string{"updater.toml", "updater.yaml", "updater.yml", "updater.json"}

// Config is the updater configuration.
type Config struct {
	Repository             string `yaml:"repository" toml:"repository" json:"repository"` // owner/repo
	APIBaseURL             string `yaml:"api_base_url" toml:"api_base_url" json:"api_base_url"`
	Disabled               bool   `yaml:"disabled" toml:"disabled" json:"disabled"`
	RequestTimeoutSeconds  int    `yaml:"request_timeout_seconds" toml:"request_timeout_seconds" json:"request_timeout_seconds"`
	DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds" toml:"download_timeout_seconds" json:"download_timeout_seconds"`
	RetryAttempts          int    `yaml:"retry_attempts" toml:"retry_attempts" json:"retry_attempts"`
	RetryIntervalMillis    int    `yaml:"retry_interval_ms" toml:"retry_interval_ms" json:"retry_interval_ms"`
	CheckIntervalMinutes   int    `yaml:"check_interval_minutes" toml:"check_interval_minutes" json:"check_interval_minutes"`
	KeepVersions           int    `yaml:"keep_versions" toml:"keep_versions" json:"keep_versions"`
	LogLevel               string `yaml:"log_level" toml:"log_level" json:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Repository:             DefaultRepository,
		APIBaseURL:             DefaultAPIBaseURL,
		RequestTimeoutSeconds:  DefaultRequestTimeoutSecond,
		DownloadTimeoutSeconds: DefaultDownloadTimeoutSecs,
		RetryAttempts:          DefaultRetryAttempts,
		RetryIntervalMillis:    DefaultRetryIntervalMillis,
		CheckIntervalMinutes:   DefaultCheckIntervalMinutes,
		KeepVersions:           DefaultKeepVersions,
		LogLevel:               DefaultLogLevel,
	}
}

// RepoCoordinates splits Repository into owner and name.
// Falls back to the default repository if the value is malformed.
func (c *Config) RepoCoordinates() (owner, repo string) {
	if o, r, ok := splitRepo(c.Repository); ok {
		return o, r
	}
	o, r, _ := splitRepo(DefaultRepository)
	return o, r
}

// RequestTimeout returns the release feed request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// DownloadTimeout caps a whole bundle download.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// RetryInterval returns the fixed sleep between swap attempts.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalMillis) * time.Millisecond
}

// CheckInterval returns the cadence of background update checks.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// ApplyEnv overlays environment overrides onto c. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	switch strings.ToLower(strings.TrimSpace(getenv(EnvDisableUpdates))) {
	case "1", "true":
		c.Disabled = true
	}

	// A malformed override is ignored rather than breaking the check.
	if v := getenv(EnvUpdateRepo); v != "" {
		if o, r, ok := splitRepo(v); ok {
			c.Repository = o + "/" + r
		}
	}
}

// splitRepo parses "owner/repo", trimming whitespace around both halves.
func splitRepo(s string) (owner, repo string, ok bool) {
	o, r, found := strings.Cut(s, "/")
	if !found {
		return "", "", false
	}
	o, r = strings.TrimSpace(o), strings.TrimSpace(r)
	if o == "" || r == "" || strings.Contains(r, "/") {
		return "", "", false
	}
	return o, r, true
}

// FindConfigFile searches for an updater config file in the standard locations.
// Unlike the application settings, the file is optional: an empty path with a
// nil error means none was found.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", nil
	}

	for _, name := range candidateNames {
		path := filepath.Join(dir, configDirName, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// Resolve finds, loads and validates the config, then applies environment
// overrides. With no config file the defaults are used.
func Resolve(explicitPath string) (*Config, string, error) {
	path, err := FindConfigFile(explicitPath)
	if err != nil {
		return nil, "", err
	}

	cfg := Default()
	if path != "" {
		cfg, err = Load(path)
		if err != nil {
			return nil, path, err
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, path, nil
}
