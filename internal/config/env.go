package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome         = "SHADOWLEND_HOME"
	EnvCluster      = "SHADOWLEND_CLUSTER"
	EnvRPC          = "SHADOWLEND_RPC"
	EnvPlatform     = "SHADOWLEND_PLATFORM"
	EnvOutputFormat = "SHADOWLEND_OUTPUT_FORMAT"
	EnvVerbose      = "SHADOWLEND_VERBOSE"
	EnvLogLevel     = "SHADOWLEND_LOG_LEVEL"
	EnvPassphrase   = "SHADOWLEND_PASSPHRASE" // #nosec G101 -- const name, not a credential
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvCluster); v != "" {
		cfg.Cluster.Name = strings.ToLower(strings.TrimSpace(v))
	}

	// SHADOWLEND_RPC replaces the endpoint list of the selected cluster.
	// Multiple endpoints are comma separated, primary first.
	if v := os.Getenv(EnvRPC); v != "" {
		var urls []string
		for _, part := range strings.Split(v, ",") {
			if u := SanitizeURL(part); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			if cfg.Cluster.Endpoints == nil {
				cfg.Cluster.Endpoints = make(map[string][]string)
			}
			cfg.Cluster.Endpoints[cfg.Cluster.Name] = urls
		}
	}

	if v := os.Getenv(EnvPlatform); v != "" {
		cfg.Wallet.Platform = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided RPC URLs that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
