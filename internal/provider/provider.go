// Package provider describes the wallet capability surface the session
// manager consumes: an extension-style Provider with optional events and
// presence markers, and a native Adapter for mobile platforms.
//
// Providers are external software. Every field may be missing and every call
// may fail, so the session manager resolves a provider per operation and
// classifies its errors with Classify.
package provider

import (
	"context"

	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// ConnectOptions control a connect request.
type ConnectOptions struct {
	// OnlyIfTrusted requests a silent connect that succeeds only when the
	// provider already trusts this origin. The provider must not prompt.
	OnlyIfTrusted bool
}

// Provider is the extension-style wallet capability.
type Provider interface {
	Connect(ctx context.Context, opts ConnectOptions) (pubkey.Key, error)
	Disconnect(ctx context.Context) error
}

// Event names a provider notification.
type Event string

// Provider events.
const (
	EventAccountChanged Event = "accountChanged"
	EventDisconnect     Event = "disconnect"
	EventConnect        Event = "connect"
)

// Events lists every event the session manager subscribes to.
func Events() []Event {
	return []Event{EventAccountChanged, EventDisconnect, EventConnect}
}

// Handler receives an event. key is nil when the event carries no account.
type Handler func(key *pubkey.Key)

// HandlerID identifies a registered handler so it can be removed.
type HandlerID uint64

// EventEmitter is implemented by providers that publish notifications.
type EventEmitter interface {
	On(event Event, h Handler) HandlerID
	Off(event Event, id HandlerID)
}

// Markers are the presence markers a provider may expose.
type Markers interface {
	// IsWallet reports the explicit "this is a wallet" marker.
	IsWallet() bool
	// IsConnected reports the connection-state field and whether it exists.
	IsConnected() (connected bool, present bool)
}

// Resolver returns the provider available right now, if any.
type Resolver func() (Provider, bool)

// AppIdentity identifies the application to a native wallet.
type AppIdentity struct {
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
	Icon string `json:"icon,omitempty"`
}

// AuthorizeRequest asks a native wallet for an account.
// A non-empty AuthToken requests silent reauthorization.
type AuthorizeRequest struct {
	Identity  AppIdentity
	Cluster   string
	AuthToken string
}

// Authorization is a granted native wallet session.
type Authorization struct {
	Account   pubkey.Key
	AuthToken string
}

// Adapter is the native mobile wallet capability.
type Adapter interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Deauthorize(ctx context.Context, authToken string) error
}

// AdapterResolver returns the native wallet adapter available right now, if any.
type AdapterResolver func() (Adapter, bool)
