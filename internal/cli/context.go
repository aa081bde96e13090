package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/metrics"
	"github.com/shadowlend/shadowlend/internal/output"
	"github.com/shadowlend/shadowlend/internal/provider/local"
)

// Files kept in the shadowlend home directory.
const (
	walletDirName    = "wallet"
	disconnectedFile = "disconnected"
	authTokenFile    = "auth_token"
	accountsFileName = "accounts.yaml"
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Collector
	Clock   clock.Clock
	// Keyring stores mnemonics; nil forces the encrypted file backend.
	Keyring local.Keyring
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, logger *config.Logger, formatter *output.Formatter) *CommandContext {
	return &CommandContext{
		Cfg:     cfg,
		Log:     logger,
		Fmt:     formatter,
		Clock:   clock.New(),
		Keyring: local.OSKeyring{},
	}
}

// WithMetrics sets the metrics collector.
func (c *CommandContext) WithMetrics(m *metrics.Collector) *CommandContext {
	c.Metrics = m
	return c
}

// WithClock sets the clock used by session timers.
func (c *CommandContext) WithClock(clk clock.Clock) *CommandContext {
	c.Clock = clk
	return c
}

// WithKeyring sets the mnemonic keyring.
func (c *CommandContext) WithKeyring(kr local.Keyring) *CommandContext {
	c.Keyring = kr
	return c
}

// Home returns the resolved data directory.
func (c *CommandContext) Home() string {
	home, err := config.ExpandHome(c.Cfg.Home)
	if err != nil {
		return c.Cfg.Home
	}
	return home
}

func (c *CommandContext) path(name string) string {
	return filepath.Join(c.Home(), name)
}

// SetCmdContext stores cc in the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the CommandContext stored by SetCmdContext, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cc, _ := ctx.Value(cmdContextKey{}).(*CommandContext)
	return cc
}

// contextWithTimeout bounds d of work under the command's context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
