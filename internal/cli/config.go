package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/output"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and modify ShadowLend configuration settings.

Settings live in <home>/config.yaml. SHADOWLEND_* environment variables
override the file for a single run; 'config set' only ever writes the file.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Long: `Create a default configuration file in the home directory.

An existing file is kept unless --force is given.`,
		Example: `  shadowlend config init
  shadowlend config init --force`,
		Args: cobra.NoArgs,
		RunE: runConfigInit,
	}
	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long: `Display every setting with its effective value, environment
overrides included.`,
		Example: `  shadowlend config show
  shadowlend config show -o json`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
	configGetCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long:  `Print the effective value of one setting, named by its dotted key.`,
		Example: `  shadowlend config get cluster.name
  shadowlend config get wallet.platform`,
		Args: cobra.ExactArgs(1),
		RunE: runConfigGet,
	}
	configSetCmd = &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Validate a value and store it in the configuration file.

List values such as cluster.endpoints are comma separated.`,
		Example: `  shadowlend config set cluster.name mainnet-beta
  shadowlend config set cluster.endpoints https://api.devnet.solana.com
  shadowlend config set wallet.platform android`,
		Args: cobra.ExactArgs(2),
		RunE: runConfigSet,
	}
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = groupConfig
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	path := config.Path(cc.Home())

	if _, err := os.Stat(path); err == nil && !configForce {
		return lenderr.WithSuggestion(
			lenderr.WithDetails(lenderr.ErrGeneral, map[string]string{"path": path}),
			"configuration already exists; use --force to overwrite",
		)
	}

	fresh := config.Defaults()
	fresh.Home = cc.Cfg.Home
	if err := config.Save(fresh, path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(map[string]string{"path": path})
	}
	w := cmd.OutOrStdout()
	output.Successf(w, "Configuration initialized at %s", path)
	outln(w)
	outln(w, "Settings you will likely want:")
	outln(w, "  program.id, program.collateral_mint, program.borrow_mint")
	outln(w, "  cluster.name and cluster.endpoints")
	outln(w, "  wallet.platform (web, android, ios)")
	return nil
}

type configEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	entries := make([]configEntry, 0, len(config.Keys()))
	for _, k := range config.Keys() {
		v, err := cc.Cfg.Get(k)
		if err != nil {
			return err
		}
		entries = append(entries, configEntry{Key: k, Value: v})
	}

	if cc.Fmt.IsJSON() {
		m := make(map[string]string, len(entries))
		for _, e := range entries {
			m[e.Key] = e.Value
		}
		return cc.Fmt.Print(m)
	}

	w := cmd.OutOrStdout()
	out(w, "%-9s %s\n\n", "File:", config.Path(cc.Home()))
	tbl := output.NewTable("KEY", "VALUE")
	for _, e := range entries {
		tbl.AddRow(e.Key, e.Value)
	}
	return tbl.Render(w)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	v, err := cc.Cfg.Get(args[0])
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(configEntry{Key: args[0], Value: v})
	}
	outln(cmd.OutOrStdout(), v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, value := args[0], args[1]
	path := config.Path(cc.Home())

	// The file is edited, not the effective configuration, so environment
	// overrides are never persisted.
	onDisk, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return lenderr.WithDetails(lenderr.ErrConfigInvalid, map[string]string{"path": path, "reason": err.Error()})
		}
		onDisk = config.Defaults()
		onDisk.Home = cc.Cfg.Home
	}

	if err := onDisk.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(onDisk, path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cc.Log.Debug("config %s set", key)

	stored, _ := onDisk.Get(key)
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(configEntry{Key: key, Value: stored})
	}
	output.Successf(cmd.OutOrStdout(), "Set %s = %s", key, stored)
	return nil
}
