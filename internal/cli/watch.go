package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	"github.com/shadowlend/shadowlend/internal/session"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the wallet session until interrupted",
	Long: `Start the session like a long-lived page and print every change.

The wallet is re-read on every interval, so creating or replacing it from
another terminal shows up as an account change. With --metrics-addr the
session and RPC counters are served in Prometheus format at /metrics.`,
	Example: `  shadowlend wallet watch
  shadowlend wallet watch --metrics-addr 127.0.0.1:9464 -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletWatch,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	watchMetricsAddr string
	watchInterval    time.Duration
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.AddCommand(walletWatchCmd)
	walletWatchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	walletWatchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "how often the wallet is re-read")
}

// sessionEvent is one line of watch output.
type sessionEvent struct {
	Time    time.Time   `json:"time"`
	Status  string      `json:"status"`
	Account *pubkey.Key `json:"account"`
}

func runWalletWatch(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx := cmd.Context()

	env := cc.openWallet(nil)
	s, err := cc.newSession(env, sessionOptions{eager: true})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if watchMetricsAddr != "" && cc.Metrics != nil {
		stop, err := serveMetrics(ctx, cc, watchMetricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	return watchSession(ctx, cc, env, s, cmd.OutOrStdout(), watchInterval)
}

// serveMetrics serves the collector on addr until stop is called.
func serveMetrics(ctx context.Context, cc *CommandContext, addr string) (stop func(), err error) {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", cc.Metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cc.Log.Error("metrics server: %v", err)
		}
	}()
	cc.Log.Debug("serving metrics on %s", ln.Addr())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}

// watchSession prints the session and each change until ctx is done.
func watchSession(ctx context.Context, cc *CommandContext, env *walletEnv, s session.WalletSession, w io.Writer, interval time.Duration) error {
	changes := make(chan session.Snapshot, 16)
	unsubscribe := s.Subscribe(func(snap session.Snapshot) {
		select {
		case changes <- snap:
		default:
		}
	})
	defer unsubscribe()

	if err := s.Start(ctx); err != nil {
		return err
	}
	cc.printEvent(w, s.Session())

	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := cc.Clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-changes:
			cc.printEvent(w, snap)
		case <-ticker.C:
			env.inject()
			if err := env.wallet.Reload(); err != nil {
				cc.Log.Error("reloading wallet: %v", err)
			}
		}
	}
}

func (c *CommandContext) printEvent(w io.Writer, snap session.Snapshot) {
	ev := sessionEvent{Time: c.Clock.Now().UTC(), Status: string(snap.Status), Account: snap.Account}
	if c.Fmt.IsJSON() {
		_ = c.Fmt.Print(ev)
		return
	}
	account := "-"
	if ev.Account != nil {
		account = ev.Account.String()
	}
	out(w, "%s  %s  %s\n", ev.Time.Format(time.TimeOnly), c.Fmt.Status(ev.Status), account)
}
