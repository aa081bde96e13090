package cli

import (
	"context"
	"io"
	"path/filepath"

	"github.com/shadowlend/shadowlend/internal/provider"
	"github.com/shadowlend/shadowlend/internal/provider/local"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	"github.com/shadowlend/shadowlend/internal/session"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// injectedName is the global the local wallet is injected under.
const injectedName = "solana"

// walletEnv is the local wallet as seen by the session manager: the
// injected global for web sessions and the adapter for mobile ones.
type walletEnv struct {
	store   *local.Keystore
	trust   *local.TrustList
	wallet  *local.Wallet
	globals *provider.Globals
}

// openWallet prepares the local wallet. approve answers connection
// requests from untrusted origins.
func (c *CommandContext) openWallet(approve local.Approver) *walletEnv {
	dir := c.path(walletDirName)
	store := local.NewKeystore(dir, c.Keyring)
	trust := local.NewTrustList(filepath.Join(dir, local.TrustFile))

	env := &walletEnv{
		store:   store,
		trust:   trust,
		wallet:  local.NewWallet(store, trust, c.Cfg.Wallet.Origin, approve),
		globals: &provider.Globals{},
	}
	env.inject()
	return env
}

// inject publishes the wallet global while a wallet exists.
func (e *walletEnv) inject() {
	if e.store.Exists() {
		e.globals.Set(injectedName, e.wallet)
		return
	}
	e.globals.Delete(injectedName)
}

// resolveAdapter finds the native wallet app.
func (e *walletEnv) resolveAdapter() (provider.Adapter, bool) {
	if !e.store.Exists() {
		return nil, false
	}
	return local.NewAdapter(e.wallet), true
}

// sessionOptions adjust the manager per command.
type sessionOptions struct {
	eager  bool
	prompt io.Writer
}

// newSession builds the session manager for the configured platform.
func (c *CommandContext) newSession(env *walletEnv, opts sessionOptions) (session.WalletSession, error) {
	platform, err := session.ParsePlatform(c.Cfg.Wallet.Platform)
	if err != nil {
		return nil, lenderr.WithSuggestion(err, "set wallet.platform to web, android, or ios")
	}

	deps := session.Deps{
		Resolver: provider.HostResolver(env.globals, provider.DefaultGlobals...),
		Adapters: env.resolveAdapter,
		Tokens:   session.NewFileTokens(c.path(authTokenFile)),
		Flag:     session.NewFileFlag(c.path(disconnectedFile)),
		Clock:    c.Clock,
		Retry: session.RetryPolicy{
			MaxAttempts: c.Cfg.Wallet.Retry.MaxAttempts,
			Delay:       c.Cfg.Wallet.Retry.Delay(),
		},
		EagerDelay:     c.Cfg.Wallet.EagerDelay(),
		NoEagerConnect: !opts.eager || !c.Cfg.Wallet.EagerConnect,
		Identity: provider.AppIdentity{
			Name: c.Cfg.Wallet.AppName,
			URI:  c.Cfg.Wallet.Origin,
		},
		Cluster:    c.Cfg.Cluster.Name,
		InstallURL: c.Cfg.Wallet.InstallURL,
	}
	if opts.prompt != nil {
		deps.Prompter = installPrompter(opts.prompt)
	}
	if c.Log != nil {
		deps.Logger = c.Log
	}
	if c.Metrics != nil {
		deps.Recorder = c.Metrics
	}

	return session.New(platform, deps)
}

// startSession starts s and waits for the startup reconnect to settle.
func startSession(ctx context.Context, s session.WalletSession) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	select {
	case <-s.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// connectedAccount resumes the session the way a page load would and
// returns its account. An explicit account overrides the session.
func (c *CommandContext) connectedAccount(ctx context.Context, override string) (pubkey.Key, error) {
	if override != "" {
		k, err := pubkey.Parse(override)
		if err != nil {
			return pubkey.Zero, lenderr.WithDetails(lenderr.ErrInvalidPublicKey, map[string]string{"account": override})
		}
		return k, nil
	}

	env := c.openWallet(nil)
	s, err := c.newSession(env, sessionOptions{eager: true})
	if err != nil {
		return pubkey.Zero, err
	}
	defer func() { _ = s.Close() }()

	if err := startSession(ctx, s); err != nil {
		return pubkey.Zero, err
	}
	k, err := session.Account(s)
	if err != nil {
		return pubkey.Zero, lenderr.WithSuggestion(err, "run 'shadowlend wallet connect' or pass --account")
	}
	return k, nil
}

// sessionView is the printable session.
type sessionView struct {
	Platform             string      `json:"platform"`
	Status               string      `json:"status"`
	Account              *pubkey.Key `json:"account"`
	ManuallyDisconnected bool        `json:"manually_disconnected"`
	WalletInstalled      bool        `json:"wallet_installed"`
	LastError            string      `json:"last_error,omitempty"`
}

func (c *CommandContext) viewSession(env *walletEnv, s session.WalletSession) sessionView {
	snap := s.Session()
	v := sessionView{
		Platform:             c.Cfg.Wallet.Platform,
		Status:               string(snap.Status),
		Account:              snap.Account,
		ManuallyDisconnected: session.NewFileFlag(c.path(disconnectedFile)).Get(),
		WalletInstalled:      env.store.Exists(),
	}
	if err := s.LastError(); err != nil {
		v.LastError = err.Error()
	}
	return v
}

func (c *CommandContext) printSession(w io.Writer, v sessionView) error {
	if c.Fmt.IsJSON() {
		return c.Fmt.Print(v)
	}
	account := "-"
	if v.Account != nil {
		account = v.Account.String()
	}
	out(w, "%-22s %s\n", "Platform:", v.Platform)
	out(w, "%-22s %s\n", "Status:", c.Fmt.Status(v.Status))
	out(w, "%-22s %s\n", "Account:", account)
	out(w, "%-22s %t\n", "Manually disconnected:", v.ManuallyDisconnected)
	out(w, "%-22s %t\n", "Wallet installed:", v.WalletInstalled)
	if v.LastError != "" {
		out(w, "%-22s %s\n", "Last error:", v.LastError)
	}
	return nil
}
