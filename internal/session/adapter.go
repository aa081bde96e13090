package session

import (
	"context"
	"fmt"

	"github.com/shadowlend/shadowlend/internal/provider"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// AdapterSession manages a session against a native wallet app. Native
// wallets publish no events; the silent reconnect reuses the cached
// auth token instead of a trust-scoped connect.
type AdapterSession struct {
	*shared
}

var _ WalletSession = (*AdapterSession)(nil)

// NewAdapterSession returns a manager for a mobile platform.
func NewAdapterSession(platform Platform, deps Deps) *AdapterSession {
	return &AdapterSession{shared: newShared(platform, deps)}
}

func (a *AdapterSession) resolve() (provider.Adapter, bool) {
	if a.deps.Adapters == nil {
		return nil, false
	}
	return a.deps.Adapters()
}

func (a *AdapterSession) request(token string) provider.AuthorizeRequest {
	return provider.AuthorizeRequest{
		Identity:  a.deps.Identity,
		Cluster:   a.deps.Cluster,
		AuthToken: token,
	}
}

// Start implements WalletSession.
func (a *AdapterSession) Start(ctx context.Context) error {
	eagerCtx, ok := a.begin(ctx)
	if !ok {
		return nil
	}
	a.eager(eagerCtx, a.reauthorize)
	return nil
}

func (a *AdapterSession) reauthorize(ctx context.Context) {
	token, err := a.deps.Tokens.Load()
	if err != nil || token == "" {
		a.deps.Logger.Debug("session: no cached auth token, skipping startup reconnect (%s)", errString(err))
		a.record(OutcomeEagerSkipped)
		return
	}

	adapter, ok := a.resolve()
	if !ok {
		a.deps.Logger.Debug("session: no wallet app for startup reconnect")
		a.record(OutcomeEagerFailed)
		return
	}

	auth, err := adapter.Authorize(ctx, a.request(token))
	if err != nil {
		a.deps.Logger.Debug("session: silent reauthorize failed: %v", err)
		a.record(OutcomeEagerFailed)
		return
	}
	a.saveToken(auth.AuthToken)
	a.state.set(connectedAs(auth.Account))
	a.record(OutcomeEagerConnected)
}

func (a *AdapterSession) saveToken(token string) {
	if err := a.deps.Tokens.Save(token); err != nil {
		a.deps.Logger.Error("session: saving auth token: %v", err)
	}
}

// Connect implements WalletSession.
func (a *AdapterSession) Connect(ctx context.Context) error {
	if _, ok := a.resolve(); !ok {
		return a.absent(ctx, provider.ErrNoWalletApp)
	}

	prior := a.state.get()
	if err := a.deps.Flag.Set(false); err != nil {
		a.deps.Logger.Error("session: clearing disconnect flag: %v", err)
	}
	a.state.set(Snapshot{Account: prior.Account, Status: StatusConnecting})

	var auth provider.Authorization
	attempts, err := a.deps.Retry.Do(ctx, a.deps.Clock, func(ctx context.Context) error {
		adapter, ok := a.resolve()
		if !ok {
			return provider.ErrNoWalletApp
		}
		res, err := adapter.Authorize(ctx, a.request(""))
		if err != nil {
			return err
		}
		auth = res
		return nil
	}, isTransient)

	return a.settle(ctx, prior, attempts, err, func() {
		a.saveToken(auth.AuthToken)
		a.state.set(connectedAs(auth.Account))
	})
}

// Disconnect implements WalletSession.
func (a *AdapterSession) Disconnect(ctx context.Context) error {
	flagErr := a.deps.Flag.Set(true)
	a.state.set(disconnected())
	a.record(OutcomeDisconnected)

	token, err := a.deps.Tokens.Load()
	if err != nil {
		a.deps.Logger.Error("session: loading auth token: %v", err)
	}
	a.saveToken("")

	if adapter, ok := a.resolve(); ok && token != "" {
		if err := adapter.Deauthorize(ctx, token); err != nil {
			a.deps.Logger.Error("session: deauthorize failed: %v", err)
		}
	}

	if flagErr != nil {
		err := fmt.Errorf("%w: saving disconnect flag: %w", lenderr.ErrGeneral, flagErr)
		a.state.setErr(err)
		return err
	}
	a.state.setErr(nil)
	return nil
}

// Session implements WalletSession.
func (a *AdapterSession) Session() Snapshot { return a.state.get() }

// Connected implements WalletSession.
func (a *AdapterSession) Connected() bool { return a.state.get().Connected() }

// Subscribe implements WalletSession.
func (a *AdapterSession) Subscribe(fn func(Snapshot)) func() { return a.state.subscribe(fn) }

// Ready implements WalletSession.
func (a *AdapterSession) Ready() <-chan struct{} { return a.ready }

// LastError implements WalletSession.
func (a *AdapterSession) LastError() error { return a.state.err() }

// Close implements WalletSession.
func (a *AdapterSession) Close() error {
	a.shutdown()
	return nil
}

// Account returns the connected account, if any.
func Account(s WalletSession) (pubkey.Key, error) {
	snap := s.Session()
	if !snap.Connected() {
		return pubkey.Zero, lenderr.ErrNotConnected
	}
	return *snap.Account, nil
}
