package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shadowlend/shadowlend/internal/config"
	"github.com/shadowlend/shadowlend/internal/provider/local"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	"github.com/shadowlend/shadowlend/internal/session"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// minPassphraseLen is the shortest passphrase accepted for the key file.
const minPassphraseLen = 8

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var (
	promptPasswordFn      = promptPassword
	promptNewPassphraseFn = promptNewPassphrase
	promptConfirmFn       = promptConfirm
	promptLineFn          = promptLine
)

// stdin is read by promptLine.
//
//nolint:gochecknoglobals // Swappable for tests
var stdin io.Reader = os.Stdin

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	out(os.Stderr, "%s", prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: Fd() fits in int
	outln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// promptNewPassphrase prompts for a key file passphrase with confirmation.
func promptNewPassphrase() ([]byte, error) {
	passphrase, err := promptPasswordFn("Enter key file passphrase: ")
	if err != nil {
		return nil, err
	}

	if len(passphrase) < minPassphraseLen {
		zeroBytes(passphrase)
		return nil, lenderr.WithSuggestion(
			lenderr.ErrInvalidInput,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLen),
		)
	}

	confirm, err := promptPasswordFn("Confirm passphrase: ")
	if err != nil {
		zeroBytes(passphrase)
		return nil, err
	}
	defer zeroBytes(confirm)

	if string(passphrase) != string(confirm) {
		zeroBytes(passphrase)
		return nil, lenderr.WithSuggestion(lenderr.ErrInvalidInput, "passphrases do not match")
	}
	return passphrase, nil
}

// unlockPassphrase returns the key file passphrase from the environment or a prompt.
func unlockPassphrase() (string, error) {
	if v := os.Getenv(config.EnvPassphrase); v != "" {
		return v, nil
	}
	p, err := promptPasswordFn("Enter key file passphrase: ")
	if err != nil {
		return "", err
	}
	defer zeroBytes(p)
	return string(p), nil
}

// promptLine reads one line of input from stdin. It reads a byte at a
// time so that nothing past the newline is consumed.
func promptLine(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)

	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := stdin.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF && sb.Len() > 0 {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// promptConfirm asks a yes/no question; anything but yes is no.
func promptConfirm(question string) bool {
	answer, err := promptLineFn(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// approveConnection is the wallet's approval dialog.
func approveConnection(_ context.Context, origin string, account pubkey.Key) (bool, error) {
	return promptConfirmFn(fmt.Sprintf("Allow %q to see account %s?", origin, account.Short())), nil
}

// installPrompter offers the wallet install page. A terminal cannot open a
// browser, so accepting prints the page and the local alternative.
func installPrompter(w io.Writer) session.InstallPrompter {
	return func(_ context.Context, installURL string) bool {
		outln(w, "No wallet was found.")
		if !promptConfirmFn("Show wallet install options?") {
			return false
		}
		out(w, "  Install a browser wallet: %s\n", installURL)
		outln(w, "  Or create a local wallet: shadowlend wallet init")
		return true
	}
}

var _ local.Approver = approveConnection

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// out writes formatted text, ignoring write errors.
func out(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// outln writes a line, ignoring write errors.
func outln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}
