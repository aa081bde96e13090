package output

import (
	"fmt"
	"io"
	"net/url"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

// QROptions controls how a code is drawn.
type QROptions struct {
	Level     qr.Level
	QuietZone int
	Compact   bool // two modules per character row
	Force     bool // draw even when w is not a terminal
}

// AccountQROptions suits a short account URI scanned from a laptop screen.
func AccountQROptions() QROptions {
	return QROptions{Level: qr.M, QuietZone: 1, Compact: true}
}

// AccountURI returns the scheme-prefixed address mobile wallets recognise,
// with an optional label.
func AccountURI(account, label string) string {
	uri := "solana:" + account
	if label != "" {
		uri += "?label=" + url.QueryEscape(label)
	}
	return uri
}

// RenderQR draws data as a QR code. Output that is not a terminal is left
// untouched unless opts.Force is set; the return value reports whether a
// code was drawn.
func RenderQR(w io.Writer, data string, opts QROptions) (bool, error) {
	if !opts.Force && !isTerminal(w) {
		return false, nil
	}
	// qrterminal silently draws nothing for oversized input.
	if _, err := qr.Encode(data, opts.Level); err != nil {
		return false, fmt.Errorf("encoding QR code: %w", err)
	}

	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          opts.Level,
		Writer:         w,
		QuietZone:      opts.QuietZone,
		HalfBlocks:     opts.Compact,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return true, nil
}
