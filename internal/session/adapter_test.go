package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/provider"
	"github.com/shadowlend/shadowlend/internal/session"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// fakeAdapter is a scriptable native wallet.
type fakeAdapter struct {
	mu        sync.Mutex
	errs      []error
	requests  []provider.AuthorizeRequest
	revoked   []string
	revokeErr error
	issued    int
}

func (f *fakeAdapter) Authorize(_ context.Context, req provider.AuthorizeRequest) (provider.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return provider.Authorization{}, err
		}
	}
	if req.AuthToken != "" {
		return provider.Authorization{Account: keyK1, AuthToken: req.AuthToken}, nil
	}
	f.issued++
	return provider.Authorization{Account: keyK1, AuthToken: "token-" + string(rune('0'+f.issued))}, nil
}

func (f *fakeAdapter) Deauthorize(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeAdapter) authorizeRequests() []provider.AuthorizeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.AuthorizeRequest(nil), f.requests...)
}

func adapterFor(a provider.Adapter) provider.AdapterResolver {
	return func() (provider.Adapter, bool) { return a, true }
}

func newMobile(t *testing.T, mock *clock.Mock, adapters provider.AdapterResolver, tokens session.TokenStore) (*session.AdapterSession, *env) {
	t.Helper()
	e := &env{flag: &session.MemoryFlag{}, rec: &recorder{}, log: &testLogger{}}
	s := session.NewAdapterSession(session.PlatformAndroid, session.Deps{
		Adapters:   adapters,
		Tokens:     tokens,
		Flag:       e.flag,
		Clock:      mock,
		Identity:   provider.AppIdentity{Name: "ShadowLend", URI: "shadowlend-cli"},
		Cluster:    "devnet",
		InstallURL: "https://phantom.app/download",
		Logger:     e.log,
		Recorder:   e.rec,
	})
	t.Cleanup(func() { _ = s.Close() })
	return s, e
}

func TestAdapterSession_ConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{}
	tokens := &session.MemoryTokens{}
	s, e := newMobile(t, clock.NewMock(), adapterFor(a), tokens)
	require.NoError(t, e.flag.Set(true))

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.Connected())
	assert.False(t, e.flag.Get())

	reqs := a.authorizeRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "ShadowLend", reqs[0].Identity.Name)
	assert.Equal(t, "devnet", reqs[0].Cluster)
	assert.Empty(t, reqs[0].AuthToken, "explicit connect requests a fresh authorization")

	tok, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	a.revokeErr = errors.New("wallet app closed")
	require.NoError(t, s.Disconnect(context.Background()))
	assert.False(t, s.Connected())
	assert.True(t, e.flag.Get())
	assert.Equal(t, []string{"token-1"}, a.revoked)
	assert.Equal(t, 1, e.log.errorCount(), "deauthorize failure is logged")

	tok, err = tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, tok, "disconnect forgets the auth token")
}

func TestAdapterSession_SilentReauthorize(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	a := &fakeAdapter{}
	tokens := &session.MemoryTokens{}
	require.NoError(t, tokens.Save("cached"))
	s, e := newMobile(t, mock, adapterFor(a), tokens)

	require.NoError(t, s.Start(context.Background()))
	advanceUntil(t, mock, s.Connected)
	waitReady(t, s)

	reqs := a.authorizeRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "cached", reqs[0].AuthToken)
	assert.Equal(t, 1, e.rec.count(session.OutcomeEagerConnected))
}

func TestAdapterSession_NoTokenNoAttempt(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	a := &fakeAdapter{}
	s, e := newMobile(t, mock, adapterFor(a), &session.MemoryTokens{})

	require.NoError(t, s.Start(context.Background()))
	advanceUntil(t, mock, func() bool {
		select {
		case <-s.Ready():
			return true
		default:
			return false
		}
	})
	assert.Empty(t, a.authorizeRequests())
	assert.Equal(t, 1, e.rec.count(session.OutcomeEagerSkipped))
}

func TestAdapterSession_FlagSuppressesReauthorize(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{}
	tokens := &session.MemoryTokens{}
	require.NoError(t, tokens.Save("cached"))
	s, e := newMobile(t, clock.NewMock(), adapterFor(a), tokens)
	require.NoError(t, e.flag.Set(true))

	require.NoError(t, s.Start(context.Background()))
	waitReady(t, s)
	assert.Empty(t, a.authorizeRequests())
}

func TestAdapterSession_NoWalletApp(t *testing.T) {
	t.Parallel()

	prompts := 0
	s := session.NewAdapterSession(session.PlatformIOS, session.Deps{
		Adapters:   func() (provider.Adapter, bool) { return nil, false },
		Flag:       &session.MemoryFlag{},
		InstallURL: "https://phantom.app/download",
		Prompter:   func(context.Context, string) bool { prompts++; return false },
	})
	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 1, prompts)
	assert.False(t, s.Connected())
	require.ErrorIs(t, s.LastError(), lenderr.ErrWalletNotInstalled)
	require.NoError(t, s.Close())
}

func TestAdapterSession_AuthorizeReportsNoWalletApp(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{errs: []error{provider.ErrNoWalletApp}}
	s, e := newMobile(t, clock.NewMock(), adapterFor(a), &session.MemoryTokens{})

	require.NoError(t, s.Connect(context.Background()))
	assert.False(t, s.Connected())
	require.ErrorIs(t, s.LastError(), lenderr.ErrWalletNotInstalled)
	assert.Equal(t, 1, e.rec.count(session.OutcomeAbsent))
}

func TestAdapterSession_TransientRetry(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	a := &fakeAdapter{errs: []error{provider.ErrTransient}}
	s, _ := newMobile(t, mock, adapterFor(a), &session.MemoryTokens{})

	done := make(chan error, 1)
	go func() { done <- s.Connect(context.Background()) }()

	var err error
	advanceUntil(t, mock, finished(done, &err))
	require.NoError(t, err)
	assert.True(t, s.Connected())
	assert.Len(t, a.authorizeRequests(), 2)
}

func TestAdapterSession_Rejected(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{errs: []error{provider.ErrRejected}}
	s, _ := newMobile(t, clock.NewMock(), adapterFor(a), &session.MemoryTokens{})

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, session.Snapshot{Status: session.StatusDisconnected}, s.Session())
	require.ErrorIs(t, s.LastError(), lenderr.ErrUserRejected)
}
