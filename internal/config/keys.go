package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// maxSuggestionDistance is the largest edit distance offered as a "did you mean".
const maxSuggestionDistance = 4

// field binds a dotted config path to typed accessors.
type field struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

// fields lists every settable configuration path.
//
//nolint:gochecknoglobals // Static lookup table
var fields = map[string]field{
	"home": {
		get: func(c *Config) string { return c.Home },
		set: func(c *Config, v string) error { c.Home = v; return nil },
	},
	"cluster.name": {
		get: func(c *Config) string { return c.Cluster.Name },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "" {
				return invalidValue("cluster.name", v, "a cluster name")
			}
			c.Cluster.Name = v
			return nil
		},
	},
	"cluster.endpoints": {
		get: func(c *Config) string { return strings.Join(c.GetEndpoints(), ",") },
		set: func(c *Config, v string) error {
			var urls []string
			for _, part := range strings.Split(v, ",") {
				if u := SanitizeURL(part); u != "" {
					urls = append(urls, u)
				}
			}
			if len(urls) == 0 {
				return invalidValue("cluster.endpoints", v, "comma separated URLs")
			}
			if c.Cluster.Endpoints == nil {
				c.Cluster.Endpoints = make(map[string][]string)
			}
			c.Cluster.Endpoints[c.Cluster.Name] = urls
			return nil
		},
	},
	"cluster.rate_limit": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Cluster.RateLimit, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				return invalidValue("cluster.rate_limit", v, "a positive number")
			}
			c.Cluster.RateLimit = f
			return nil
		},
	},
	"cluster.timeout_seconds": intField(
		func(c *Config) *int { return &c.Cluster.TimeoutSeconds }, "cluster.timeout_seconds", 1),
	"program.id":              keyField(func(c *Config) *string { return &c.Program.ID }, "program.id"),
	"program.collateral_mint": keyField(func(c *Config) *string { return &c.Program.CollateralMint }, "program.collateral_mint"),
	"program.borrow_mint":     keyField(func(c *Config) *string { return &c.Program.BorrowMint }, "program.borrow_mint"),
	"wallet.platform": {
		get: func(c *Config) string { return c.Wallet.Platform },
		set: func(c *Config, v string) error {
			v = strings.ToLower(v)
			switch v {
			case "web", "android", "ios":
				c.Wallet.Platform = v
				return nil
			default:
				return invalidValue("wallet.platform", v, "web, android, or ios")
			}
		},
	},
	"wallet.origin": {
		get: func(c *Config) string { return c.Wallet.Origin },
		set: func(c *Config, v string) error { c.Wallet.Origin = v; return nil },
	},
	"wallet.install_url": {
		get: func(c *Config) string { return c.Wallet.InstallURL },
		set: func(c *Config, v string) error { c.Wallet.InstallURL = SanitizeURL(v); return nil },
	},
	"wallet.eager_connect": {
		get: func(c *Config) string { return strconv.FormatBool(c.Wallet.EagerConnect) },
		set: func(c *Config, v string) error { c.Wallet.EagerConnect = parseBool(v); return nil },
	},
	"wallet.eager_delay_ms":     intField(func(c *Config) *int { return &c.Wallet.EagerDelayMS }, "wallet.eager_delay_ms", 0),
	"wallet.retry.max_attempts": intField(func(c *Config) *int { return &c.Wallet.Retry.MaxAttempts }, "wallet.retry.max_attempts", 1),
	"wallet.retry.delay_ms":     intField(func(c *Config) *int { return &c.Wallet.Retry.DelayMS }, "wallet.retry.delay_ms", 0),
	"output.default_format": {
		get: func(c *Config) string { return c.Output.DefaultFormat },
		set: func(c *Config, v string) error {
			if v != "text" && v != "json" && v != "auto" {
				return invalidValue("output.default_format", v, "text, json, or auto")
			}
			c.Output.DefaultFormat = v
			return nil
		},
	},
	"output.color": {
		get: func(c *Config) string { return c.Output.Color },
		set: func(c *Config, v string) error {
			if v != "auto" && v != "always" && v != "never" {
				return invalidValue("output.color", v, "auto, always, or never")
			}
			c.Output.Color = v
			return nil
		},
	},
	"output.verbose": {
		get: func(c *Config) string { return strconv.FormatBool(c.Output.Verbose) },
		set: func(c *Config, v string) error { c.Output.Verbose = parseBool(v); return nil },
	},
	"logging.level": {
		get: func(c *Config) string { return c.Logging.Level },
		set: func(c *Config, v string) error {
			switch v {
			case "off", "error", "debug":
				c.Logging.Level = v
				return nil
			default:
				return invalidValue("logging.level", v, "off, error, or debug")
			}
		},
	},
	"logging.file": {
		get: func(c *Config) string { return c.Logging.File },
		set: func(c *Config, v string) error { c.Logging.File = v; return nil },
	},
}

func intField(ptr func(c *Config) *int, path string, minimum int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < minimum {
				return invalidValue(path, v, fmt.Sprintf("an integer >= %d", minimum))
			}
			*ptr(c) = n
			return nil
		},
	}
}

func keyField(ptr func(c *Config) *string, path string) field {
	return field{
		get: func(c *Config) string { return *ptr(c) },
		set: func(c *Config, v string) error {
			if _, err := pubkey.Parse(v); err != nil {
				return invalidValue(path, v, "a base58 public key")
			}
			*ptr(c) = v
			return nil
		},
	}
}

func invalidValue(path, value, valid string) error {
	return lenderr.WithDetails(
		lenderr.ErrInvalidInput,
		map[string]string{"key": path, "value": value, "valid": valid},
	)
}

// Keys returns every settable configuration path, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at a dotted configuration path.
func (c *Config) Get(path string) (string, error) {
	f, ok := fields[path]
	if !ok {
		return "", unknownKey(path)
	}
	return f.get(c), nil
}

// Set validates and stores the value at a dotted configuration path.
func (c *Config) Set(path, value string) error {
	f, ok := fields[path]
	if !ok {
		return unknownKey(path)
	}
	return f.set(c, value)
}

// SuggestKey returns the closest known key to path, or "" if none is close.
func SuggestKey(path string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, k := range Keys() {
		d := levenshtein.ComputeDistance(path, k)
		if d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

func unknownKey(path string) error {
	err := lenderr.WithDetails(lenderr.ErrUnknownConfigKey, map[string]string{"key": path})
	if s := SuggestKey(path); s != "" {
		return lenderr.WithSuggestion(err, fmt.Sprintf("did you mean '%s'?", s))
	}
	return lenderr.WithSuggestion(err, "run 'shadowlend config show' to list keys")
}
