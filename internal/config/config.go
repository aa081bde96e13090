// Package config provides configuration management for ShadowLend.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shadowlend/shadowlend/internal/fileutil"
)

// Config represents the application configuration.
type Config struct {
	Version int           `yaml:"version"`
	Home    string        `yaml:"home"`
	Cluster ClusterConfig `yaml:"cluster"`
	Program ProgramConfig `yaml:"program"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClusterConfig defines which network the application talks to.
type ClusterConfig struct {
	Name           string              `yaml:"name"`
	Endpoints      map[string][]string `yaml:"endpoints"`
	RateLimit      float64             `yaml:"rate_limit"`
	RateBurst      int                 `yaml:"rate_burst"`
	TimeoutSeconds int                 `yaml:"timeout_seconds"`
}

// ProgramConfig identifies the on-chain program and the token mints of its pool.
type ProgramConfig struct {
	ID             string `yaml:"id"`
	CollateralMint string `yaml:"collateral_mint"`
	BorrowMint     string `yaml:"borrow_mint"`
}

// WalletConfig defines wallet session behavior.
type WalletConfig struct {
	Platform     string      `yaml:"platform"`
	Origin       string      `yaml:"origin"`
	AppName      string      `yaml:"app_name"`
	InstallURL   string      `yaml:"install_url"`
	EagerConnect bool        `yaml:"eager_connect"`
	EagerDelayMS int         `yaml:"eager_delay_ms"`
	Retry        RetryConfig `yaml:"retry"`
}

// RetryConfig is the bounded retry policy for transient provider errors.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	DelayMS     int `yaml:"delay_ms"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the shadowlend home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetClusterName returns the selected cluster name.
func (c *Config) GetClusterName() string {
	return c.Cluster.Name
}

// GetEndpoints returns the RPC endpoints of the selected cluster.
func (c *Config) GetEndpoints() []string {
	return c.Cluster.Endpoints[c.Cluster.Name]
}

// GetProgramID returns the ShadowLend program identifier.
func (c *Config) GetProgramID() string {
	return c.Program.ID
}

// GetPlatform returns the wallet platform name.
func (c *Config) GetPlatform() string {
	return c.Wallet.Platform
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// EagerDelay returns the delay before the trust-scoped reconnect attempt.
func (w WalletConfig) EagerDelay() time.Duration {
	if w.EagerDelayMS < 0 {
		return 0
	}
	return time.Duration(w.EagerDelayMS) * time.Millisecond
}

// Delay returns the fixed delay between connect attempts.
func (r RetryConfig) Delay() time.Duration {
	if r.DelayMS < 0 {
		return 0
	}
	return time.Duration(r.DelayMS) * time.Millisecond
}

// DefaultHome returns the default shadowlend home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shadowlend"
	}
	return filepath.Join(home, ".shadowlend")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}
