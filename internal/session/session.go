// Package session implements the wallet session manager: a single
// connect/disconnect/query contract over an injected browser wallet
// (ExtensionSession) or a native wallet app (AdapterSession).
//
// The manager owns the session record and never escalates provider errors.
// User rejection, transient unavailability, hard failure and a missing
// wallet are each contained, logged, and reflected through Session,
// LastError and the Recorder. The manual-disconnect flag suppresses silent
// reconnects after the user chose to disconnect.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Status is the connection state of a session.
type Status string

// Session statuses.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// Snapshot is a copy of the session record.
type Snapshot struct {
	Account *pubkey.Key `json:"account"`
	Status  Status      `json:"status"`
}

// Connected reports whether the snapshot has a connected account.
func (s Snapshot) Connected() bool {
	return s.Status == StatusConnected && s.Account != nil
}

// clone returns a snapshot that shares no memory with s.
func (s Snapshot) clone() Snapshot {
	if s.Account == nil {
		return s
	}
	k := *s.Account
	return Snapshot{Account: &k, Status: s.Status}
}

func disconnected() Snapshot {
	return Snapshot{Status: StatusDisconnected}
}

func connectedAs(k pubkey.Key) Snapshot {
	return Snapshot{Account: &k, Status: StatusConnected}
}

// WalletSession is the contract shared by both platform variants.
type WalletSession interface {
	// Start subscribes to provider events and schedules the trust-scoped
	// reconnect unless the user disconnected manually.
	Start(ctx context.Context) error
	// Connect performs an explicit, user-initiated connect.
	Connect(ctx context.Context) error
	// Disconnect clears the session before asking the provider to disconnect.
	Disconnect(ctx context.Context) error
	// Session returns a copy of the current record.
	Session() Snapshot
	Connected() bool
	// Subscribe calls fn after every change, in order. fn may read the
	// session but must not connect or disconnect. The returned func unsubscribes.
	Subscribe(fn func(Snapshot)) (cancel func())
	// Ready is closed once the startup reconnect attempt has finished or was skipped.
	Ready() <-chan struct{}
	// LastError is the classified error of the most recent connect or
	// disconnect, or nil when it succeeded.
	LastError() error
	// Close unregisters event handlers and joins background work.
	Close() error
}

// Platform selects the session variant.
type Platform string

// Supported platforms.
const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformWeb, PlatformAndroid, PlatformIOS:
		return p, nil
	default:
		return "", lenderr.WithDetails(lenderr.ErrUnknownPlatform, map[string]string{"platform": s})
	}
}

// Logger is the logging surface the session manager writes to.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Outcome names a recorded session event.
type Outcome string

// Recorded outcomes.
const (
	OutcomeConnected      Outcome = "connected"
	OutcomeRejected       Outcome = "rejected"
	OutcomeRetried        Outcome = "retried"
	OutcomeFailed         Outcome = "failed"
	OutcomeAbsent         Outcome = "absent"
	OutcomeDisconnected   Outcome = "disconnected"
	OutcomeEagerConnected Outcome = "eager_connected"
	OutcomeEagerSkipped   Outcome = "eager_skipped"
	OutcomeEagerFailed    Outcome = "eager_failed"
)

// Recorder receives session outcomes, typically for metrics.
type Recorder interface {
	Record(platform, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Record(string, string) {}

// InstallPrompter offers the user the wallet install page and reports
// whether they accepted. Opening the page is the prompter's job.
type InstallPrompter func(ctx context.Context, installURL string) (accepted bool)

func (p Platform) String() string {
	return string(p)
}

// errString renders err for logs, tolerating nil.
func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprint(err)
}
