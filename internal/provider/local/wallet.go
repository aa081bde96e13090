// Package local is a wallet provider backed by a key on this machine. It
// plays the part of a browser extension (Wallet) or a native wallet app
// (Adapter) for the session manager, so the CLI can drive the same
// connect, disconnect and trust flows a browser would.
package local

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shadowlend/shadowlend/internal/provider"
	"github.com/shadowlend/shadowlend/internal/pubkey"
)

// ErrNotTrusted is returned by a trust-scoped connect from an unapproved origin.
var ErrNotTrusted = errors.New("origin is not trusted by this wallet")

// Approver asks the user whether origin may see account.
type Approver func(ctx context.Context, origin string, account pubkey.Key) (bool, error)

// Wallet implements provider.Provider, provider.EventEmitter and provider.Markers.
type Wallet struct {
	store   *Keystore
	trust   *TrustList
	origin  string
	approve Approver
	now     func() time.Time

	mu sync.Mutex
	// account and origin are meaningful only while connected.
	account   *pubkey.Key
	connected bool
	connOrig  string
	handlers  map[provider.Event]map[provider.HandlerID]provider.Handler
	nextID    provider.HandlerID
}

// NewWallet returns a wallet serving origin. approve may be nil, in which
// case every interactive request is rejected.
func NewWallet(store *Keystore, trust *TrustList, origin string, approve Approver) *Wallet {
	return &Wallet{
		store:    store,
		trust:    trust,
		origin:   origin,
		approve:  approve,
		now:      time.Now,
		handlers: make(map[provider.Event]map[provider.HandlerID]provider.Handler),
	}
}

// Connect implements provider.Provider.
func (w *Wallet) Connect(ctx context.Context, opts provider.ConnectOptions) (pubkey.Key, error) {
	return w.connect(ctx, w.origin, opts)
}

func (w *Wallet) connect(ctx context.Context, origin string, opts provider.ConnectOptions) (pubkey.Key, error) {
	if err := ctx.Err(); err != nil {
		return pubkey.Zero, err
	}

	meta, err := w.store.Metadata()
	if err != nil {
		return pubkey.Zero, err
	}
	account := meta.PublicKey

	trusted, err := w.trust.Trusted(origin, account)
	if err != nil {
		return pubkey.Zero, err
	}

	if !trusted {
		if opts.OnlyIfTrusted {
			return pubkey.Zero, ErrNotTrusted
		}
		if w.approve == nil {
			return pubkey.Zero, rejected()
		}
		ok, err := w.approve(ctx, origin, account)
		if err != nil {
			return pubkey.Zero, err
		}
		if !ok {
			return pubkey.Zero, rejected()
		}
		if err := w.trust.Add(origin, account, w.now()); err != nil {
			return pubkey.Zero, err
		}
	}

	w.mu.Lock()
	w.account = &account
	w.connected = true
	w.connOrig = origin
	w.mu.Unlock()

	w.emit(provider.EventConnect, &account)
	return account, nil
}

// Disconnect implements provider.Provider. Trust is kept.
func (w *Wallet) Disconnect(_ context.Context) error {
	w.mu.Lock()
	wasConnected := w.connected
	w.connected = false
	w.mu.Unlock()

	if wasConnected {
		w.emit(provider.EventDisconnect, nil)
	}
	return nil
}

// Revoke removes the trust of this wallet's origin and disconnects it.
func (w *Wallet) Revoke(ctx context.Context) (bool, error) {
	removed, err := w.trust.Remove(w.origin)
	if err != nil {
		return false, err
	}
	return removed, w.Disconnect(ctx)
}

// Reload re-reads the stored account. Like an injected wallet, it only
// notifies a connected origin: a removed wallet emits accountChanged(nil),
// a replaced one emits the new account when the origin trusts it and nil
// otherwise. Nothing is emitted while disconnected.
func (w *Wallet) Reload() error {
	var current *pubkey.Key
	meta, err := w.store.Metadata()
	switch {
	case err == nil:
		current = &meta.PublicKey
	case !w.store.Exists():
		current = nil
	default:
		return err
	}

	w.mu.Lock()
	if !w.connected || (current != nil && *w.account == *current) {
		w.mu.Unlock()
		return nil
	}
	origin := w.connOrig
	w.mu.Unlock()

	next := current
	if current != nil {
		trusted, err := w.trust.Trusted(origin, *current)
		if err != nil {
			return err
		}
		if !trusted {
			next = nil
		}
	}

	w.mu.Lock()
	if !w.connected {
		// Disconnected while the trust list was read.
		w.mu.Unlock()
		return nil
	}
	w.account = next
	w.connected = next != nil
	w.mu.Unlock()

	w.emit(provider.EventAccountChanged, next)
	return nil
}

// On implements provider.EventEmitter.
func (w *Wallet) On(event provider.Event, h provider.Handler) provider.HandlerID {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	if w.handlers[event] == nil {
		w.handlers[event] = make(map[provider.HandlerID]provider.Handler)
	}
	w.handlers[event][w.nextID] = h
	return w.nextID
}

// Off implements provider.EventEmitter.
func (w *Wallet) Off(event provider.Event, id provider.HandlerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.handlers[event], id)
}

// HandlerCount returns the number of handlers registered for event.
func (w *Wallet) HandlerCount(event provider.Event) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.handlers[event])
}

// IsWallet implements provider.Markers.
func (w *Wallet) IsWallet() bool { return true }

// IsConnected implements provider.Markers.
func (w *Wallet) IsConnected() (connected, present bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected, true
}

func (w *Wallet) emit(event provider.Event, key *pubkey.Key) {
	w.mu.Lock()
	hs := make([]provider.Handler, 0, len(w.handlers[event]))
	for _, h := range w.handlers[event] {
		hs = append(hs, h)
	}
	w.mu.Unlock()

	for _, h := range hs {
		if key == nil {
			h(nil)
			continue
		}
		k := *key
		h(&k)
	}
}

func rejected() error {
	return &provider.RPCError{Code: provider.CodeUserRejected, Message: "User rejected the request."}
}

// Adapter exposes a Wallet as a native wallet app.
type Adapter struct {
	wallet *Wallet
}

// NewAdapter wraps w.
func NewAdapter(w *Wallet) *Adapter {
	return &Adapter{wallet: w}
}

// Authorize implements provider.Adapter. A request carrying a known
// AuthToken is granted silently; an unknown token fails with ErrNotTrusted.
func (a *Adapter) Authorize(ctx context.Context, req provider.AuthorizeRequest) (provider.Authorization, error) {
	origin := req.Identity.URI
	if origin == "" {
		origin = req.Identity.Name
	}

	if req.AuthToken != "" {
		entry, err := a.wallet.trust.ByToken(req.AuthToken)
		if err != nil {
			return provider.Authorization{}, err
		}
		if entry == nil || entry.Origin != origin {
			return provider.Authorization{}, ErrNotTrusted
		}
		account, err := a.wallet.connect(ctx, origin, provider.ConnectOptions{OnlyIfTrusted: true})
		if err != nil {
			return provider.Authorization{}, err
		}
		return provider.Authorization{Account: account, AuthToken: req.AuthToken}, nil
	}

	account, err := a.wallet.connect(ctx, origin, provider.ConnectOptions{})
	if err != nil {
		return provider.Authorization{}, err
	}
	token := uuid.NewString()
	if err := a.wallet.trust.SetToken(origin, token); err != nil {
		return provider.Authorization{}, err
	}
	return provider.Authorization{Account: account, AuthToken: token}, nil
}

// Deauthorize implements provider.Adapter.
func (a *Adapter) Deauthorize(ctx context.Context, authToken string) error {
	if err := a.wallet.trust.RevokeToken(authToken); err != nil {
		return err
	}
	return a.wallet.Disconnect(ctx)
}
