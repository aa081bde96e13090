package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/output"
)

// testPassphrase unlocks key files created by tests.
const testPassphrase = "correct horse battery"

// testMnemonic is the BIP39 all-"abandon" test vector.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// syncBuffer is a bytes.Buffer safe for a command writing in the background.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// testEnv is an isolated shadowlend home with captured output.
type testEnv struct {
	home   string
	cfg    *config.Config
	cc     *CommandContext
	out    *syncBuffer
	errOut *syncBuffer
}

// newTestEnv returns an environment using the encrypted file backend and
// short session timers. Prompts answer "no" unless a test replaces them.
func newTestEnv(t *testing.T, format output.Format) *testEnv {
	t.Helper()

	home := t.TempDir()
	cfg := config.Defaults()
	cfg.Home = home
	cfg.Logging.Level = "off"
	cfg.Wallet.EagerDelayMS = 1
	cfg.Wallet.Retry.DelayMS = 1

	out := &syncBuffer{}
	cc := NewCommandContext(cfg, config.NullLogger(), output.NewFormatter(format, out)).WithKeyring(nil)

	t.Setenv(config.EnvPassphrase, testPassphrase)
	stubPrompts(t, false)

	return &testEnv{home: home, cfg: cfg, cc: cc, out: out, errOut: &syncBuffer{}}
}

// stubPrompts answers every confirmation with answer.
func stubPrompts(t *testing.T, answer bool) *int {
	t.Helper()

	asked := new(int)
	origConfirm, origLine, origPassword := promptConfirmFn, promptLineFn, promptPasswordFn
	promptConfirmFn = func(string) bool {
		*asked++
		return answer
	}
	promptLineFn = func(string) (string, error) { return "", nil }
	promptPasswordFn = func(string) ([]byte, error) { return []byte(testPassphrase), nil }
	t.Cleanup(func() {
		promptConfirmFn, promptLineFn, promptPasswordFn = origConfirm, origLine, origPassword
	})
	return asked
}

// command returns a command carrying the environment's context.
func (e *testEnv) command(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(e.out)
	cmd.SetErr(e.errOut)
	cmd.SetContext(ctx)
	SetCmdContext(cmd, e.cc)
	return cmd
}

// run invokes fn as a command and returns its error. Output from earlier
// runs is discarded.
func (e *testEnv) run(fn func(*cobra.Command, []string) error, args ...string) error {
	e.out.Reset()
	e.errOut.Reset()
	return fn(e.command(context.Background()), args)
}

// runJSON runs fn and decodes its JSON output into v.
func (e *testEnv) runJSON(t *testing.T, v any, fn func(*cobra.Command, []string) error, args ...string) {
	t.Helper()
	require.NoError(t, e.run(fn, args...))
	require.NoError(t, jsonDecode(e.out.String(), v), e.out.String())
}

// initWallet creates the wallet from testMnemonic.
func (e *testEnv) initWallet(t *testing.T) {
	t.Helper()

	orig := promptLineFn
	promptLineFn = func(string) (string, error) { return testMnemonic, nil }
	walletRestore = true
	defer func() {
		promptLineFn = orig
		walletRestore = false
	}()
	require.NoError(t, e.run(runWalletInit))
}

// connect approves and connects the configured origin.
func (e *testEnv) connect(t *testing.T) {
	t.Helper()

	orig := promptConfirmFn
	promptConfirmFn = func(string) bool { return true }
	defer func() { promptConfirmFn = orig }()
	require.NoError(t, e.run(runWalletConnect))
}

// sessionOf runs wallet status and decodes it.
func (e *testEnv) sessionOf(t *testing.T) sessionView {
	t.Helper()

	prev := e.cc.Fmt
	e.cc.Fmt = output.NewFormatter(output.FormatJSON, e.out)
	defer func() { e.cc.Fmt = prev }()

	var v sessionView
	e.runJSON(t, &v, runWalletStatus)
	return v
}

func jsonDecode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
