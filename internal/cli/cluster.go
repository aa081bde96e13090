package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/cluster"
	"github.com/shadowlend/shadowlend/internal/instruction"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// clusterCmd is the parent command for RPC queries.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Query the configured Solana cluster",
	Long: `Query the RPC endpoints of the selected cluster.

Endpoints are tried in order; each is rate limited and transient failures
are retried with backoff before falling over to the next one.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	clusterHealthCmd = &cobra.Command{
		Use:     "health",
		Short:   "Check that the cluster is healthy",
		Long:    `Call getHealth and report the cluster and the endpoint list.`,
		Example: `  shadowlend cluster health`,
		Args:    cobra.NoArgs,
		RunE:    runClusterHealth,
	}
	clusterSlotCmd = &cobra.Command{
		Use:     "slot",
		Short:   "Show the current slot",
		Long:    `Print the slot the cluster has processed.`,
		Example: `  shadowlend cluster slot`,
		Args:    cobra.NoArgs,
		RunE:    runClusterSlot,
	}
	clusterVersionCmd = &cobra.Command{
		Use:     "version",
		Short:   "Show the node software version",
		Long:    `Print the solana-core version of the first healthy endpoint.`,
		Example: `  shadowlend cluster version`,
		Args:    cobra.NoArgs,
		RunE:    runClusterVersion,
	}
	clusterBalanceCmd = &cobra.Command{
		Use:   "balance [account]",
		Short: "Show an account's SOL balance",
		Long: `Print the SOL balance of an account, by default the connected
wallet account.`,
		Example: `  shadowlend cluster balance
  shadowlend cluster balance <account>`,
		Args: cobra.MaximumNArgs(1),
		RunE: runClusterBalance,
	}
	clusterAccountCmd = &cobra.Command{
		Use:     "account <address>",
		Short:   "Show account metadata",
		Long:    `Print the owner, lamports and data length of an account.`,
		Example: `  shadowlend cluster account <address>`,
		Args:    cobra.ExactArgs(1),
		RunE:    runClusterAccount,
	}
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	clusterCmd.GroupID = groupProgram
	rootCmd.AddCommand(clusterCmd)
	actsForAccount(clusterBalanceCmd)
	clusterCmd.AddCommand(clusterHealthCmd, clusterSlotCmd, clusterVersionCmd, clusterBalanceCmd, clusterAccountCmd)
}

// newClusterClient builds the RPC client from configuration.
func (c *CommandContext) newClusterClient() (*cluster.Client, error) {
	cfg := cluster.Config{
		Endpoints: c.Cfg.GetEndpoints(),
		RateLimit: c.Cfg.Cluster.RateLimit,
		RateBurst: c.Cfg.Cluster.RateBurst,
		Timeout:   time.Duration(c.Cfg.Cluster.TimeoutSeconds) * time.Second,
	}
	if c.Log != nil {
		cfg.Logger = c.Log
	}
	if c.Metrics != nil {
		cfg.Observer = c.Metrics
	}
	return cluster.New(cfg)
}

// rpcTimeout bounds a single command's RPC work, retries included.
func (c *CommandContext) rpcTimeout() time.Duration {
	per := time.Duration(c.Cfg.Cluster.TimeoutSeconds) * time.Second
	if per <= 0 {
		per = 15 * time.Second
	}
	return per * time.Duration(len(c.Cfg.GetEndpoints())+1) * 2
}

type healthView struct {
	Cluster   string   `json:"cluster"`
	Healthy   bool     `json:"healthy"`
	Endpoints []string `json:"endpoints"`
}

func runClusterHealth(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	client, err := cc.newClusterClient()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cc.rpcTimeout())
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return err
	}

	v := healthView{Cluster: cc.Cfg.Cluster.Name, Healthy: true, Endpoints: client.Endpoints()}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(v)
	}
	w := cmd.OutOrStdout()
	out(w, "%-10s %s\n", "Cluster:", v.Cluster)
	out(w, "%-10s %s\n", "Health:", "ok")
	for i, e := range v.Endpoints {
		label := ""
		if i == 0 {
			label = "Endpoints:"
		}
		out(w, "%-10s %s\n", label, e)
	}
	return nil
}

func runClusterSlot(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	client, err := cc.newClusterClient()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cc.rpcTimeout())
	defer cancel()

	slot, err := client.Slot(ctx)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(map[string]uint64{"slot": slot})
	}
	outln(cmd.OutOrStdout(), slot)
	return nil
}

func runClusterVersion(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	client, err := cc.newClusterClient()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cc.rpcTimeout())
	defer cancel()

	v, err := client.Version(ctx)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(map[string]string{"solana_core": v})
	}
	outln(cmd.OutOrStdout(), v)
	return nil
}

type balanceView struct {
	*cluster.Balance

	SOL string `json:"sol"`
}

func runClusterBalance(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	client, err := cc.newClusterClient()
	if err != nil {
		return err
	}

	var override string
	if len(args) == 1 {
		override = args[0]
	}
	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout()+cc.rpcTimeout())
	defer cancel()

	account, err := cc.connectedAccount(ctx, override)
	if err != nil {
		return err
	}
	bal, err := client.Balance(ctx, account)
	if err != nil {
		return err
	}

	v := balanceView{Balance: bal, SOL: instruction.FormatAmount(bal.Lamports, instruction.DecimalsSOL)}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(v)
	}
	w := cmd.OutOrStdout()
	out(w, "%-9s %s\n", "Account:", v.Account)
	out(w, "%-9s %s SOL\n", "Balance:", v.SOL)
	out(w, "%-9s %d\n", "Slot:", v.Slot)
	return nil
}

func runClusterAccount(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, err := parseAccountArg("address", args[0])
	if err != nil {
		return err
	}
	client, err := cc.newClusterClient()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cc.rpcTimeout())
	defer cancel()

	info, err := client.Account(ctx, key)
	if err != nil {
		return err
	}
	if info == nil {
		return lenderr.WithDetails(lenderr.ErrNotFound, map[string]string{"account": key.String()})
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(info)
	}
	w := cmd.OutOrStdout()
	out(w, "%-11s %s\n", "Account:", info.Account)
	out(w, "%-11s %s\n", "Owner:", info.Owner)
	out(w, "%-11s %s SOL\n", "Balance:", instruction.FormatAmount(info.Lamports, instruction.DecimalsSOL))
	out(w, "%-11s %t\n", "Executable:", info.Executable)
	out(w, "%-11s %d bytes\n", "Data:", info.DataLen)
	return nil
}
