// Package cli implements the ShadowLend command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/metrics"
	"github.com/shadowlend/shadowlend/internal/output"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// BuildInfo is stamped by the linker at release time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	buildInfo BuildInfo
	helpOnce  sync.Once

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// Command groups shown in root help.
const (
	groupWallet  = "wallet"
	groupProgram = "program"
	groupConfig  = "config"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "shadowlend",
	Short: "Wallet sessions and instruction building for ShadowLend",
	Long: `ShadowLend is a confidential lending protocol on Solana.

This tool connects a local wallet the way a browser or mobile wallet would,
remembers when you chose to disconnect, and builds ShadowLend program
instructions for the connected account.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initGlobals(); err != nil {
			return err
		}
		SetCmdContext(cmd, NewCommandContext(cfg, logger, formatter).WithMetrics(metrics.NewCollector()))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version information",
	Long:    `Show the version, commit and build date of this binary.`,
	Example: `  shadowlend version`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cc := GetCmdContext(cmd)
		if cc != nil && cc.Fmt.IsJSON() {
			return cc.Fmt.Print(buildInfo.withDefaults())
		}
		outln(cmd.OutOrStdout(), "shadowlend "+formatVersion(buildInfo))
		return nil
	},
}

// SetBuildInfo records the linker-stamped version.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

func (b BuildInfo) withDefaults() BuildInfo {
	if b.Version == "" {
		b.Version = "dev"
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

func formatVersion(info BuildInfo) string {
	b := info.withDefaults()
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which long-running
// commands such as 'wallet watch' treat as their stop signal.
func ExecuteContext(ctx context.Context) error {
	helpOnce.Do(func() { walkCommands(rootCmd, listSubcommands) })

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return lenderr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !os.IsNotExist(err) {
			return lenderr.WithSuggestion(
				lenderr.WithDetails(lenderr.ErrConfigInvalid, map[string]string{
					"path":   config.Path(home),
					"reason": err.Error(),
				}),
				"fix the file or recreate it with 'shadowlend config init --force'",
			)
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.Logging.File)
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.DetectFormat(os.Stdout, output.ParseFormat(cfg.Output.DefaultFormat)), os.Stdout)
	formatter.SetColor(output.UseColor(os.Stdout, cfg.Output.Color))
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "shadowlend data directory (default: ~/.shadowlend)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupWallet, Title: "Wallet Session:"},
		&cobra.Group{ID: groupProgram, Title: "Program & Cluster:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID(groupConfig)

	versionCmd.GroupID = groupConfig
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = formatVersion(buildInfo)
}
