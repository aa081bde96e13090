package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/shadowlend/shadowlend/internal/provider"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// ExtensionSession manages a session against an injected browser wallet.
type ExtensionSession struct {
	*shared

	subMu    sync.Mutex
	emitter  provider.EventEmitter
	handlers map[provider.Event]provider.HandlerID
}

var _ WalletSession = (*ExtensionSession)(nil)

// NewExtensionSession returns a manager for the web platform.
func NewExtensionSession(deps Deps) *ExtensionSession {
	return &ExtensionSession{shared: newShared(PlatformWeb, deps)}
}

// resolve looks the provider up again; handles are never cached across calls.
func (e *ExtensionSession) resolve() (provider.Provider, bool) {
	if e.deps.Resolver == nil {
		return nil, false
	}
	return e.deps.Resolver()
}

// Start implements WalletSession.
func (e *ExtensionSession) Start(ctx context.Context) error {
	eagerCtx, ok := e.begin(ctx)
	if !ok {
		return nil
	}

	e.subscribeEvents()
	e.eager(eagerCtx, e.trustedConnect)
	return nil
}

func (e *ExtensionSession) trustedConnect(ctx context.Context) {
	p, ok := e.resolve()
	if !ok {
		e.deps.Logger.Debug("session: no wallet for startup reconnect")
		e.record(OutcomeEagerFailed)
		return
	}

	key, err := p.Connect(ctx, provider.ConnectOptions{OnlyIfTrusted: true})
	if err != nil {
		// Expected when the origin was never approved or the wallet is still loading.
		e.deps.Logger.Debug("session: startup reconnect failed: %v", err)
		e.record(OutcomeEagerFailed)
		return
	}
	e.state.set(connectedAs(key))
	e.record(OutcomeEagerConnected)
}

func (e *ExtensionSession) subscribeEvents() {
	p, ok := e.resolve()
	if !ok {
		return
	}
	em, ok := p.(provider.EventEmitter)
	if !ok {
		return
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.emitter = em
	e.handlers = map[provider.Event]provider.HandlerID{
		provider.EventAccountChanged: em.On(provider.EventAccountChanged, e.onAccountChanged),
		provider.EventDisconnect:     em.On(provider.EventDisconnect, e.onDisconnect),
		provider.EventConnect:        em.On(provider.EventConnect, e.onConnect),
	}
}

func (e *ExtensionSession) onAccountChanged(key *pubkey.Key) {
	if key == nil {
		e.deps.Logger.Debug("session: account changed to none")
		e.state.set(disconnected())
		return
	}
	if e.deps.Flag.Get() {
		e.deps.Logger.Debug("session: ignoring account change to %s after manual disconnect", key.Short())
		return
	}
	e.deps.Logger.Debug("session: account changed to %s", key.Short())
	e.state.set(connectedAs(*key))
}

func (e *ExtensionSession) onDisconnect(*pubkey.Key) {
	e.deps.Logger.Debug("session: wallet disconnected")
	e.state.set(disconnected())
}

// onConnect follows wallet-side connects. While the user's disconnect
// stands, only an explicit Connect brings the session back.
func (e *ExtensionSession) onConnect(key *pubkey.Key) {
	if key == nil || e.deps.Flag.Get() {
		return
	}
	e.state.set(connectedAs(*key))
}

// Connect implements WalletSession.
func (e *ExtensionSession) Connect(ctx context.Context) error {
	if _, ok := e.resolve(); !ok {
		return e.absent(ctx, provider.ErrNotDetected)
	}

	prior := e.state.get()
	if err := e.deps.Flag.Set(false); err != nil {
		e.deps.Logger.Error("session: clearing disconnect flag: %v", err)
	}
	e.state.set(Snapshot{Account: prior.Account, Status: StatusConnecting})

	var key pubkey.Key
	attempts, err := e.deps.Retry.Do(ctx, e.deps.Clock, func(ctx context.Context) error {
		p, ok := e.resolve()
		if !ok {
			return provider.ErrNotDetected
		}
		k, err := p.Connect(ctx, provider.ConnectOptions{})
		if err != nil {
			if isTransient(err) {
				e.deps.Logger.Debug("session: transient connect error, will retry: %v", err)
			}
			return err
		}
		key = k
		return nil
	}, isTransient)

	return e.settle(ctx, prior, attempts, err, func() {
		e.state.set(connectedAs(key))
	})
}

// Disconnect implements WalletSession.
func (e *ExtensionSession) Disconnect(ctx context.Context) error {
	flagErr := e.deps.Flag.Set(true)
	e.state.set(disconnected())
	e.record(OutcomeDisconnected)

	if p, ok := e.resolve(); ok {
		if err := p.Disconnect(ctx); err != nil {
			e.deps.Logger.Error("session: provider disconnect failed: %v", err)
		}
	} else {
		e.deps.Logger.Debug("session: no wallet to notify of disconnect")
	}

	if flagErr != nil {
		err := fmt.Errorf("%w: saving disconnect flag: %w", lenderr.ErrGeneral, flagErr)
		e.state.setErr(err)
		return err
	}
	e.state.setErr(nil)
	return nil
}

// Session implements WalletSession.
func (e *ExtensionSession) Session() Snapshot { return e.state.get() }

// Connected implements WalletSession.
func (e *ExtensionSession) Connected() bool { return e.state.get().Connected() }

// Subscribe implements WalletSession.
func (e *ExtensionSession) Subscribe(fn func(Snapshot)) func() { return e.state.subscribe(fn) }

// Ready implements WalletSession.
func (e *ExtensionSession) Ready() <-chan struct{} { return e.ready }

// LastError implements WalletSession.
func (e *ExtensionSession) LastError() error { return e.state.err() }

// Close implements WalletSession. Handlers are removed from the same
// provider handle they were registered on.
func (e *ExtensionSession) Close() error {
	if !e.shutdown() {
		return nil
	}

	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.emitter != nil {
		for event, id := range e.handlers {
			e.emitter.Off(event, id)
		}
	}
	e.emitter = nil
	e.handlers = nil
	return nil
}
