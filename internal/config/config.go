// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// Backend names accepted by default_backend and --backend
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendBadger = "badger"
)

// ValidBackends lists the supported backend names
var ValidBackends = []string{BackendSQLite, BackendFile, BackendBadger}

const (
	defaultWatchDebounce     = 300 * time.Millisecond
	defaultUnknownTaskPolicy = "fail"
)

// UIConfig holds user interface settings
type UIConfig struct {
	Watch           bool `yaml:"watch"`             // Reload the TUI when the store changes on disk
	WatchDebounceMs int  `yaml:"watch_debounce_ms"` // Quiet period before a reload (default: 300)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose           bool  `yaml:"verbose"`
	BackgroundEnabled *bool `yaml:"background_enabled"` // Controls background log file creation (default: true)
}

// ViewerConfig holds write-behind cache settings
type ViewerConfig struct {
	UnknownTaskPolicy string `yaml:"unknown_task_policy"` // fail or hang (default: fail)
}

// Config represents the application configuration
type Config struct {
	Backends       BackendsConfig `yaml:"backends"`
	DefaultBackend string         `yaml:"default_backend"`
	NoPrompt       bool           `yaml:"no_prompt"`
	OutputFormat   string         `yaml:"output_format"`
	Viewer         ViewerConfig   `yaml:"viewer"`
	UI             UIConfig       `yaml:"ui"`
	Logging        LoggingConfig  `yaml:"logging"`
}

// BackendsConfig holds configuration for all backends
type BackendsConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
	File   FileConfig   `yaml:"file"`
	Badger BadgerConfig `yaml:"badger"`
}

// SQLiteConfig holds SQLite backend configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FileConfig holds markdown file backend configuration
type FileConfig struct {
	Path string `yaml:"path"`
}

// BadgerConfig holds Badger backend configuration
type BadgerConfig struct {
	Path string `yaml:"path"` // Database directory
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backends: BackendsConfig{
			SQLite: SQLiteConfig{Path: filepath.Join(GetDataDir(), "dolist.db")},
			File:   FileConfig{Path: filepath.Join(GetDataDir(), "lists.md")},
			Badger: BadgerConfig{Path: filepath.Join(GetDataDir(), "badger")},
		},
		DefaultBackend: BackendSQLite,
		OutputFormat:   "text",
		Viewer:         ViewerConfig{UnknownTaskPolicy: defaultUnknownTaskPolicy},
		UI:             UIConfig{WatchDebounceMs: int(defaultWatchDebounce / time.Millisecond)},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the sample.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills unset fields with defaults
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.DefaultBackend == "" {
		cfg.DefaultBackend = defaults.DefaultBackend
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaults.OutputFormat
	}
	if cfg.Viewer.UnknownTaskPolicy == "" {
		cfg.Viewer.UnknownTaskPolicy = defaults.Viewer.UnknownTaskPolicy
	}

	// Expand configured paths, fall back to the data directory
	cfg.Backends.SQLite.Path = pathOr(cfg.Backends.SQLite.Path, defaults.Backends.SQLite.Path)
	cfg.Backends.File.Path = pathOr(cfg.Backends.File.Path, defaults.Backends.File.Path)
	cfg.Backends.Badger.Path = pathOr(cfg.Backends.Badger.Path, defaults.Backends.Badger.Path)

	return cfg, nil
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return ExpandPath(path)
}

// save writes the sample configuration to the specified path
func (c *Config) save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation and comments
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Check output format
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	// Check default backend
	if !IsValidBackend(c.DefaultBackend) {
		return fmt.Errorf("unknown default_backend: %q (must be one of %s)", c.DefaultBackend, strings.Join(ValidBackends, ", "))
	}

	switch c.Viewer.UnknownTaskPolicy {
	case "", "fail", "hang":
	default:
		return fmt.Errorf("invalid viewer.unknown_task_policy: %q (must be 'fail' or 'hang')", c.Viewer.UnknownTaskPolicy)
	}

	if c.UI.WatchDebounceMs < 0 {
		return fmt.Errorf("ui.watch_debounce_ms must not be negative, got %d", c.UI.WatchDebounceMs)
	}

	return nil
}

// IsValidBackend reports whether name is a supported backend
func IsValidBackend(name string) bool {
	for _, b := range ValidBackends {
		if b == name {
			return true
		}
	}
	return false
}

// ApplyFlags applies CLI flag overrides to the configuration.
// dbPath overrides the path of whichever backend ends up selected.
func (c *Config) ApplyFlags(backendName, dbPath string, verbose bool, outputFormat string) {
	if backendName != "" {
		c.DefaultBackend = backendName
	}
	if dbPath != "" {
		c.SetBackendPath(c.DefaultBackend, ExpandPath(dbPath))
	}
	if verbose {
		c.Logging.Verbose = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetBackendPath returns the storage path of the named backend
func (c *Config) GetBackendPath(name string) string {
	switch name {
	case BackendFile:
		return c.Backends.File.Path
	case BackendBadger:
		return c.Backends.Badger.Path
	default:
		return c.Backends.SQLite.Path
	}
}

// SetBackendPath sets the storage path of the named backend
func (c *Config) SetBackendPath(name, path string) {
	switch name {
	case BackendFile:
		c.Backends.File.Path = path
	case BackendBadger:
		c.Backends.Badger.Path = path
	default:
		c.Backends.SQLite.Path = path
	}
}

// GetUnknownTaskPolicy returns the viewer policy name, "fail" if not configured
func (c *Config) GetUnknownTaskPolicy() string {
	if c.Viewer.UnknownTaskPolicy == "" {
		return defaultUnknownTaskPolicy
	}
	return c.Viewer.UnknownTaskPolicy
}

// GetWatchDebounce returns the watcher quiet period.
// Returns 300ms if not configured.
func (c *Config) GetWatchDebounce() time.Duration {
	if c.UI.WatchDebounceMs <= 0 {
		return defaultWatchDebounce
	}
	return time.Duration(c.UI.WatchDebounceMs) * time.Millisecond
}

// IsBackgroundLoggingEnabled returns true if background logging is enabled.
// Background logging writes the TUI session log to a PID-specific file in the temp dir.
// Returns true (default) if not configured.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true // Default: enabled
	}
	return *c.Logging.BackgroundEnabled
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "dolist")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "dolist")
	}
	return filepath.Join(home, fallbackPath, "dolist")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// Expand environment variables
	return os.ExpandEnv(path)
}
