package cli

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/output"
	"github.com/shadowlend/shadowlend/internal/provider/local"
	"github.com/shadowlend/shadowlend/internal/session"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

func TestWalletInit_Generated(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)

	var created walletCreated
	env.runJSON(t, &created, runWalletInit)

	assert.Len(t, strings.Fields(created.Mnemonic), 12)
	assert.False(t, created.PublicKey.IsZero())
	assert.Equal(t, local.BackendFile, created.Backend)
	assert.Equal(t, local.AccountPath(0), created.Path)

	err := env.run(runWalletInit)
	require.ErrorIs(t, err, lenderr.ErrWalletExists)
}

func TestWalletInit_TwentyFourWords(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	walletWords = 24
	t.Cleanup(func() { walletWords = 12 })

	var created walletCreated
	env.runJSON(t, &created, runWalletInit)
	assert.Len(t, strings.Fields(created.Mnemonic), 24)
}

func TestWalletInit_InvalidWordCount(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	walletWords = 15
	t.Cleanup(func() { walletWords = 12 })

	err := env.run(runWalletInit)
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)
}

func TestWalletInit_RestoreIsDeterministic(t *testing.T) {
	a := newTestEnv(t, output.FormatJSON)
	a.initWallet(t)
	var first walletCreated
	require.NoError(t, jsonDecode(a.out.String(), &first))

	b := newTestEnv(t, output.FormatJSON)
	b.initWallet(t)
	var second walletCreated
	require.NoError(t, jsonDecode(b.out.String(), &second))

	assert.Equal(t, first.PublicKey, second.PublicKey)
	assert.Empty(t, first.Mnemonic, "restored mnemonics are not echoed")
}

func TestWalletInit_TextShowsMnemonicOnce(t *testing.T) {
	env := newTestEnv(t, output.FormatText)
	require.NoError(t, env.run(runWalletInit))

	out := env.out.String()
	assert.Contains(t, out, "Recovery phrase")
	assert.Contains(t, out, "wallet created")
	assert.Contains(t, out, "Storage:  file")
}

func TestWalletInit_ShortPassphraseFromEnv(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	t.Setenv("SHADOWLEND_PASSPHRASE", "short")

	err := env.run(runWalletInit)
	require.ErrorIs(t, err, lenderr.ErrInvalidInput)
	assert.NoFileExists(t, filepath.Join(env.home, walletDirName, "wallet.yaml"))
}

func TestWalletSession_ConnectResumeDisconnect(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.initWallet(t)

	before := env.sessionOf(t)
	assert.Equal(t, string(session.StatusDisconnected), before.Status)
	assert.True(t, before.WalletInstalled)
	assert.False(t, before.ManuallyDisconnected)

	env.connect(t)
	var connected sessionView
	require.NoError(t, jsonDecode(env.out.String(), &connected))
	require.NotNil(t, connected.Account)
	assert.Equal(t, string(session.StatusConnected), connected.Status)

	// A later invocation resumes silently.
	resumed := env.sessionOf(t)
	assert.Equal(t, string(session.StatusConnected), resumed.Status)
	assert.Equal(t, connected.Account, resumed.Account)

	require.NoError(t, env.run(runWalletDisconnect))
	after := env.sessionOf(t)
	assert.Equal(t, string(session.StatusDisconnected), after.Status)
	assert.Nil(t, after.Account)
	assert.True(t, after.ManuallyDisconnected)

	// Connecting again clears the flag without a second approval.
	asked := stubPrompts(t, false)
	require.NoError(t, env.run(runWalletConnect))
	assert.Zero(t, *asked)
	assert.False(t, env.sessionOf(t).ManuallyDisconnected)
}

func TestWalletConnect_Rejected(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.initWallet(t)

	err := env.run(runWalletConnect)
	require.ErrorIs(t, err, lenderr.ErrUserRejected)
	assert.Equal(t, lenderr.ExitAuth, lenderr.ExitCode(err))

	entries, err := local.NewTrustList(filepath.Join(env.home, walletDirName, local.TrustFile)).List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWalletConnect_NoWallet(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	asked := stubPrompts(t, false)

	err := env.run(runWalletConnect)
	require.ErrorIs(t, err, lenderr.ErrWalletNotInstalled)
	assert.Equal(t, 1, *asked)
	assert.Contains(t, env.errOut.String(), "No wallet was found.")
}

func TestWalletConnect_InstallOffer(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	stubPrompts(t, true)

	err := env.run(runWalletConnect)
	require.ErrorIs(t, err, lenderr.ErrWalletNotInstalled)
	assert.Contains(t, env.errOut.String(), env.cfg.Wallet.InstallURL)
	assert.Contains(t, env.errOut.String(), "shadowlend wallet init")
}

func TestWalletSession_Mobile(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.cfg.Wallet.Platform = "android"
	env.initWallet(t)

	env.connect(t)
	tokenPath := filepath.Join(env.home, authTokenFile)
	assert.FileExists(t, tokenPath)

	resumed := env.sessionOf(t)
	assert.Equal(t, string(session.StatusConnected), resumed.Status)
	assert.Equal(t, "android", resumed.Platform)

	require.NoError(t, env.run(runWalletDisconnect))
	assert.NoFileExists(t, tokenPath)
	assert.Equal(t, string(session.StatusDisconnected), env.sessionOf(t).Status)
}

func TestWalletStatus_Text(t *testing.T) {
	env := newTestEnv(t, output.FormatText)
	require.NoError(t, env.run(runWalletStatus))

	out := env.out.String()
	assert.Contains(t, out, "Platform:              web")
	assert.Contains(t, out, "Status:                disconnected")
	assert.Contains(t, out, "Wallet installed:      false")
}

func TestWalletTrust_ListAndUntrust(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.initWallet(t)

	var entries []local.TrustEntry
	env.runJSON(t, &entries, runWalletTrust)
	assert.Empty(t, entries)

	env.connect(t)
	env.runJSON(t, &entries, runWalletTrust)
	require.Len(t, entries, 1)
	assert.Equal(t, env.cfg.Wallet.Origin, entries[0].Origin)

	require.NoError(t, env.run(runWalletUntrust))
	env.runJSON(t, &entries, runWalletTrust)
	assert.Empty(t, entries)

	// Without trust the startup reconnect finds nothing.
	assert.Equal(t, string(session.StatusDisconnected), env.sessionOf(t).Status)

	err := env.run(runWalletUntrust, "other-origin")
	require.ErrorIs(t, err, lenderr.ErrNotFound)
}

func TestWalletTrust_TextEmpty(t *testing.T) {
	env := newTestEnv(t, output.FormatText)
	require.NoError(t, env.run(runWalletTrust))
	assert.Equal(t, "No trusted origins\n", env.out.String())
}

func TestWalletSign(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.initWallet(t)

	var sig signature
	env.runJSON(t, &sig, runWalletSign, "hello")

	raw, err := base58.Decode(sig.Signature)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(sig.Account.Bytes()), []byte("hello"), raw))
	assert.Equal(t, "hello", sig.Message)
}

func TestWalletSign_WrongPassphrase(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.initWallet(t)
	t.Setenv("SHADOWLEND_PASSPHRASE", "not the passphrase")

	err := env.run(runWalletSign, "hello")
	require.ErrorIs(t, err, lenderr.ErrDecryptionFailed)
}

func TestWalletSign_NoWallet(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)

	err := env.run(runWalletSign, "hello")
	require.ErrorIs(t, err, lenderr.ErrWalletNotFound)
}

func TestSessionTimeout(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)
	env.cfg.Wallet.EagerDelayMS = 1000
	env.cfg.Wallet.Retry.MaxAttempts = 3
	env.cfg.Wallet.Retry.DelayMS = 500

	got := env.cc.sessionTimeout()
	assert.Greater(t, got.Seconds(), 122.0)
}

func TestOpenWallet_InjectsOnlyWhenInstalled(t *testing.T) {
	env := newTestEnv(t, output.FormatJSON)

	w := env.cc.openWallet(nil)
	_, ok := w.globals.Lookup(injectedName)
	assert.False(t, ok)
	_, ok = w.resolveAdapter()
	assert.False(t, ok)

	env.initWallet(t)
	w.inject()
	_, ok = w.globals.Lookup(injectedName)
	assert.True(t, ok)
	_, ok = w.resolveAdapter()
	assert.True(t, ok)

	require.NoError(t, os.RemoveAll(filepath.Join(env.home, walletDirName)))
	w.inject()
	_, ok = w.globals.Lookup(injectedName)
	assert.False(t, ok)
}
