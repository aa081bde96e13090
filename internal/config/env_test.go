package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"on", "on", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"no", "no", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean URL", "https://api.devnet.solana.com", "https://api.devnet.solana.com"},
		{"surrounding whitespace", "  https://api.devnet.solana.com  ", "https://api.devnet.solana.com"},
		{"local with port", "http://127.0.0.1:8899", "http://127.0.0.1:8899"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeURL(tc.input))
		})
	}
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel
func TestApplyEnvironment(t *testing.T) {
	t.Run("no overrides", func(t *testing.T) {
		cfg := Defaults()
		ApplyEnvironment(cfg)
		assert.Equal(t, Defaults().Cluster.Name, cfg.Cluster.Name)
	})

	t.Run("home and platform", func(t *testing.T) {
		t.Setenv(EnvHome, "/tmp/shadowlend-home")
		t.Setenv(EnvPlatform, " Android ")
		cfg := Defaults()
		ApplyEnvironment(cfg)
		assert.Equal(t, "/tmp/shadowlend-home", cfg.Home)
		assert.Equal(t, "android", cfg.Wallet.Platform)
	})

	t.Run("cluster and rpc list", func(t *testing.T) {
		t.Setenv(EnvCluster, "LOCALNET")
		t.Setenv(EnvRPC, "http://127.0.0.1:8899, http://127.0.0.1:8900")
		cfg := Defaults()
		ApplyEnvironment(cfg)
		assert.Equal(t, ClusterLocalnet, cfg.Cluster.Name)
		assert.Equal(t, []string{"http://127.0.0.1:8899", "http://127.0.0.1:8900"}, cfg.GetEndpoints())
		assert.Equal(t, DefaultEndpoints[ClusterDevnet], cfg.Cluster.Endpoints[ClusterDevnet])
	})

	t.Run("rpc for a cluster without defaults", func(t *testing.T) {
		t.Setenv(EnvCluster, "testnet")
		t.Setenv(EnvRPC, "https://api.testnet.solana.com")
		cfg := Defaults()
		cfg.Cluster.Endpoints = nil
		ApplyEnvironment(cfg)
		assert.Equal(t, []string{"https://api.testnet.solana.com"}, cfg.GetEndpoints())
	})

	t.Run("output and logging", func(t *testing.T) {
		t.Setenv(EnvOutputFormat, "JSON")
		t.Setenv(EnvVerbose, "yes")
		t.Setenv(EnvLogLevel, "DEBUG")
		t.Setenv(EnvNoColor, "")
		cfg := Defaults()
		ApplyEnvironment(cfg)
		assert.Equal(t, "json", cfg.Output.DefaultFormat)
		assert.True(t, cfg.Output.Verbose)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "never", cfg.Output.Color)
	})
}
