package cli

import (
	"errors"
	"os"
	"time"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/output"
	"github.com/shadowlend/shadowlend/internal/provider/local"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// walletCmd is the parent command for wallet session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallet and its session",
	Long: `Create the local wallet and drive its session.

The local wallet stands in for a browser extension (platform "web") or a
mobile wallet app (platforms "android" and "ios"). Connecting asks for your
approval once per origin; later commands reconnect silently unless you ran
'shadowlend wallet disconnect', which is remembered until the next connect.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the local wallet",
	Long: `Create the local wallet from a new or existing BIP39 mnemonic.

The mnemonic is stored in the OS keychain when one is available and in an
age-encrypted file otherwise. The account is derived at m/44'/501'/N'/0'.`,
	Example: `  shadowlend wallet init
  shadowlend wallet init --words 24 --file-storage
  shadowlend wallet init --restore`,
	Args: cobra.NoArgs,
	RunE: runWalletInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet session",
	Long: `Resume the session the way a page load would and show it.

A trusted wallet reconnects silently unless the session was disconnected
manually.`,
	Example: `  shadowlend wallet status
  shadowlend wallet status --qr
  shadowlend wallet status -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet",
	Long: `Connect the wallet explicitly. This clears a previous manual disconnect.

A rejected request or a wallet that keeps failing leaves the session
disconnected and exits with an error.`,
	Example: `  shadowlend wallet connect`,
	Args:    cobra.NoArgs,
	RunE:    runWalletConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the wallet",
	Long: `Disconnect the wallet and suppress silent reconnects until the next
explicit connect. The wallet keeps trusting this origin.`,
	Example: `  shadowlend wallet disconnect`,
	Args:    cobra.NoArgs,
	RunE:    runWalletDisconnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletTrustCmd = &cobra.Command{
	Use:     "trust",
	Short:   "List origins trusted by the wallet",
	Long:    `List the origins the wallet reconnects to without asking.`,
	Example: `  shadowlend wallet trust`,
	Args:    cobra.NoArgs,
	RunE:    runWalletTrust,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletUntrustCmd = &cobra.Command{
	Use:   "untrust [origin]",
	Short: "Revoke an origin's trust",
	Long: `Remove an origin from the trusted list. Without an argument the
configured origin (wallet.origin) is removed. The next connect asks again.`,
	Example: `  shadowlend wallet untrust
  shadowlend wallet untrust https://app.example`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalletUntrust,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletSignCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with the wallet key",
	Long: `Sign a UTF-8 message with the wallet's ed25519 key and print the
base58 signature. File-backed wallets read the passphrase from
SHADOWLEND_PASSPHRASE or prompt for it.`,
	Example: `  shadowlend wallet sign "login:1700000000"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runWalletSign,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	walletWords       int
	walletRestore     bool
	walletFileStorage bool
	walletAccount     uint32
	walletShowQR      bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = groupWallet
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletInitCmd, walletStatusCmd, walletConnectCmd, walletDisconnectCmd,
		walletTrustCmd, walletUntrustCmd, walletSignCmd)

	walletInitCmd.Flags().IntVar(&walletWords, "words", 12, "mnemonic length: 12 or 24 words")
	walletInitCmd.Flags().BoolVar(&walletRestore, "restore", false, "restore from an existing mnemonic")
	walletInitCmd.Flags().BoolVar(&walletFileStorage, "file-storage", false, "store the mnemonic in an encrypted file, not the OS keychain")
	walletInitCmd.Flags().Uint32Var(&walletAccount, "account", 0, "account index in the derivation path")
	walletStatusCmd.Flags().BoolVar(&walletShowQR, "qr", false, "render the account as a QR code")
}

type walletCreated struct {
	local.Metadata
	Mnemonic string `json:"mnemonic,omitempty"`
}

func runWalletInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	kr := cc.Keyring
	if walletFileStorage {
		kr = nil
	}
	store := local.NewKeystore(cc.path(walletDirName), kr)
	if store.Exists() {
		return lenderr.WithSuggestion(lenderr.ErrWalletExists, "use the existing wallet or remove "+store.Dir())
	}

	var (
		mnemonic  string
		generated bool
		err       error
	)
	if walletRestore {
		if mnemonic, err = promptLineFn("Enter mnemonic (all words on one line): "); err != nil {
			return err
		}
	} else {
		bits := 128
		switch walletWords {
		case 12:
		case 24:
			bits = 256
		default:
			return lenderr.WithSuggestion(
				lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"words": cmd.Flag("words").Value.String()}),
				"use --words 12 or --words 24",
			)
		}
		if mnemonic, err = local.GenerateMnemonic(bits); err != nil {
			return err
		}
		generated = true
	}

	var passphrase string
	if !local.ProbeKeyring(kr) {
		p, err := newKeyFilePassphrase()
		if err != nil {
			return err
		}
		passphrase = p
	}

	meta, err := store.Create(mnemonic, passphrase, local.AccountPath(walletAccount), cc.Clock.Now())
	if err != nil {
		return err
	}
	cc.Log.Debug("created wallet %s (backend %s)", meta.PublicKey, meta.Backend)

	if cc.Fmt.IsJSON() {
		result := walletCreated{Metadata: meta}
		if generated {
			result.Mnemonic = mnemonic
		}
		return cc.Fmt.Print(result)
	}

	if generated {
		outln(w, "Recovery phrase (write it down, it is shown only once):")
		outln(w)
		out(w, "  %s\n\n", mnemonic)
	}
	output.Successf(w, "wallet created")
	out(w, "%-9s %s\n", "Account:", meta.PublicKey)
	out(w, "%-9s %s\n", "Path:", meta.Path)
	out(w, "%-9s %s\n", "Storage:", meta.Backend)
	return nil
}

// newKeyFilePassphrase reads the file backend passphrase from the
// environment, or asks for a new one.
func newKeyFilePassphrase() (string, error) {
	if v := os.Getenv(config.EnvPassphrase); v != "" {
		if len(v) < minPassphraseLen {
			return "", lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"env": config.EnvPassphrase, "reason": "too short"})
		}
		return v, nil
	}
	b, err := promptNewPassphraseFn()
	if err != nil {
		return "", err
	}
	defer zeroBytes(b)
	return string(b), nil
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	env := cc.openWallet(nil)
	s, err := cc.newSession(env, sessionOptions{eager: true})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout())
	defer cancel()
	if err := startSession(ctx, s); err != nil {
		return err
	}

	v := cc.viewSession(env, s)
	if err := cc.printSession(w, v); err != nil {
		return err
	}
	if walletShowQR && v.Account != nil && !cc.Fmt.IsJSON() {
		outln(w)
		_, err := output.RenderQR(w, output.AccountURI(v.Account.String(), cc.Cfg.Wallet.Origin), output.AccountQROptions())
		return err
	}
	return nil
}

func runWalletConnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	env := cc.openWallet(approveConnection)
	s, err := cc.newSession(env, sessionOptions{prompt: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout())
	defer cancel()
	if err := startSession(ctx, s); err != nil {
		return err
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}

	if !s.Connected() {
		if cause := s.LastError(); cause != nil {
			return cause
		}
		return lenderr.ErrConnectFailed
	}

	if !cc.Fmt.IsJSON() {
		output.Successf(w, "connected %s", s.Session().Account.Short())
	}
	return cc.printSession(w, cc.viewSession(env, s))
}

func runWalletDisconnect(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	env := cc.openWallet(nil)
	s, err := cc.newSession(env, sessionOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout())
	defer cancel()
	if err := startSession(ctx, s); err != nil {
		return err
	}
	if err := s.Disconnect(ctx); err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(cc.viewSession(env, s))
	}
	output.Success(w, "disconnected; silent reconnect is off until 'shadowlend wallet connect'")
	return nil
}

func runWalletTrust(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	env := cc.openWallet(nil)

	entries, err := env.trust.List()
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		if entries == nil {
			entries = []local.TrustEntry{}
		}
		return cc.Fmt.Print(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		outln(w, "No trusted origins")
		return nil
	}
	tbl := output.NewTable("ORIGIN", "ACCOUNT", "APPROVED", "MOBILE")
	for _, e := range entries {
		mobile := "no"
		if e.AuthToken != "" {
			mobile = "yes"
		}
		tbl.AddRow(e.Origin, e.Account.Short(), e.ApprovedAt.Format(time.RFC3339), mobile)
	}
	return tbl.Render(w)
}

func runWalletUntrust(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	origin := cc.Cfg.Wallet.Origin
	if len(args) == 1 {
		origin = args[0]
	}

	env := cc.openWallet(nil)
	removed, err := env.trust.Remove(origin)
	if err != nil {
		return err
	}
	if origin == cc.Cfg.Wallet.Origin {
		if err := env.wallet.Disconnect(cmd.Context()); err != nil {
			return err
		}
	}
	if !removed {
		return lenderr.WithDetails(lenderr.ErrNotFound, map[string]string{"origin": origin})
	}
	return formatSuccess(cmd, "revoked trust for "+origin)
}

type signature struct {
	Account   pubkey.Key `json:"account"`
	Message   string     `json:"message"`
	Signature string     `json:"signature"`
}

func runWalletSign(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	env := cc.openWallet(nil)

	meta, err := env.store.Metadata()
	if err != nil {
		if errors.Is(err, lenderr.ErrWalletNotFound) {
			return lenderr.WithSuggestion(err, "create one with 'shadowlend wallet init'")
		}
		return err
	}

	var passphrase string
	if meta.Backend != local.BackendKeyring {
		if passphrase, err = unlockPassphrase(); err != nil {
			return err
		}
	}
	secret, err := env.store.Unlock(passphrase)
	if err != nil {
		return err
	}
	defer secret.Destroy()

	sig := signature{
		Account:   meta.PublicKey,
		Message:   args[0],
		Signature: base58.Encode(secret.Sign([]byte(args[0]))),
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(sig)
	}
	outln(cmd.OutOrStdout(), sig.Signature)
	return nil
}

// formatSuccess prints a success message in the active format.
func formatSuccess(cmd *cobra.Command, msg string) error {
	cc := GetCmdContext(cmd)
	if cc.Fmt.IsJSON() {
		return output.FormatSuccess(cc.Fmt.Writer(), msg, output.FormatJSON)
	}
	output.Success(cmd.OutOrStdout(), msg)
	return nil
}

// sessionTimeout bounds a command's wallet interaction, leaving room for
// the retry delay and the user's approval.
func (c *CommandContext) sessionTimeout() time.Duration {
	return 2*time.Minute + c.Cfg.Wallet.EagerDelay() +
		time.Duration(max(c.Cfg.Wallet.Retry.MaxAttempts, 1))*c.Cfg.Wallet.Retry.Delay()
}
