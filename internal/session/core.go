package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/shadowlend/shadowlend/internal/provider"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// DefaultEagerDelay tolerates wallets that inject themselves late.
const DefaultEagerDelay = 300 * time.Millisecond

// Deps are the collaborators of a session manager. Zero values fall back
// to defaults: the process-wide flag, the wall clock, DefaultRetryPolicy,
// DefaultEagerDelay and no-op logging.
type Deps struct {
	// Resolver finds the injected wallet for ExtensionSession.
	Resolver provider.Resolver
	// Adapters finds the native wallet for AdapterSession.
	Adapters provider.AdapterResolver
	// Tokens caches the native wallet auth token.
	Tokens TokenStore

	Flag  DisconnectFlag
	Clock clock.Clock
	Retry RetryPolicy

	EagerDelay time.Duration
	// NoEagerConnect disables the startup reconnect entirely.
	NoEagerConnect bool

	Identity   provider.AppIdentity
	Cluster    string
	InstallURL string
	Prompter   InstallPrompter

	Logger   Logger
	Recorder Recorder
}

// shared is the state and plumbing common to both variants.
type shared struct {
	platform Platform
	deps     Deps
	state    *store

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ready   chan struct{}
	once    sync.Once
}

func newShared(platform Platform, deps Deps) *shared {
	if deps.Flag == nil {
		deps.Flag = ProcessFlag()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Retry == (RetryPolicy{}) {
		deps.Retry = DefaultRetryPolicy()
	}
	if deps.EagerDelay == 0 {
		deps.EagerDelay = DefaultEagerDelay
	}
	if deps.Tokens == nil {
		deps.Tokens = &MemoryTokens{}
	}
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &shared{
		platform: platform,
		deps:     deps,
		state:    newStore(),
		ready:    make(chan struct{}),
	}
}

func (s *shared) record(o Outcome) {
	s.deps.Recorder.Record(string(s.platform), string(o))
}

func (s *shared) markReady() {
	s.once.Do(func() { close(s.ready) })
}

// begin marks the manager started. It reports false if Start already ran
// or the manager is closed.
func (s *shared) begin(ctx context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return nil, false
	}
	s.started = true
	eagerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return eagerCtx, true
}

// eager schedules attempt after the eager delay unless the flag is set.
func (s *shared) eager(ctx context.Context, attempt func(ctx context.Context)) {
	if s.deps.NoEagerConnect || s.deps.Flag.Get() {
		s.deps.Logger.Debug("session: startup reconnect skipped (manual disconnect or disabled)")
		s.record(OutcomeEagerSkipped)
		s.markReady()
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.markReady()

		if err := sleep(ctx, s.deps.Clock, s.deps.EagerDelay); err != nil {
			return
		}
		// The user may have disconnected while we waited.
		if s.deps.Flag.Get() {
			s.record(OutcomeEagerSkipped)
			return
		}
		attempt(ctx)
	}()
}

// shutdown cancels background work and waits for it.
func (s *shared) shutdown() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.markReady()
	s.state.unsubscribeAll()
	return true
}

// absent handles a missing wallet: one install offer, session unchanged.
func (s *shared) absent(ctx context.Context, cause error) error {
	url := s.deps.InstallURL
	s.deps.Logger.Error("session: no wallet available on %s: %v", s.platform, cause)

	err := lenderr.WithDetails(fmt.Errorf("%w: %w", lenderr.ErrWalletNotInstalled, cause), map[string]string{"platform": string(s.platform)})
	if url != "" {
		err = lenderr.WithSuggestion(err, "install a wallet from "+url)
	}
	s.state.setErr(err)
	s.record(OutcomeAbsent)

	if s.deps.Prompter != nil && url != "" {
		if s.deps.Prompter(ctx, url) {
			s.deps.Logger.Debug("session: user accepted install prompt for %s", url)
		} else {
			s.deps.Logger.Debug("session: user declined install prompt")
		}
	}
	return nil
}

// settle applies the outcome of an explicit connect. prior is restored on
// rejection. Only context cancellation is returned.
func (s *shared) settle(ctx context.Context, prior Snapshot, attempts int, err error, onSuccess func()) error {
	if attempts > 1 {
		s.record(OutcomeRetried)
	}
	if err == nil {
		onSuccess()
		s.state.setErr(nil)
		s.record(OutcomeConnected)
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		s.state.set(disconnected())
		s.state.setErr(err)
		return err
	}

	class := provider.Classify(err)
	if attempts > 1 && class != provider.ClassNone {
		// A failure after a retry is final whatever it looks like.
		class = provider.ClassHard
	}

	switch class {
	case provider.ClassRejected:
		s.deps.Logger.Debug("session: user rejected connection: %v", err)
		s.state.set(prior)
		s.state.setErr(fmt.Errorf("%w: %w", lenderr.ErrUserRejected, err))
		s.record(OutcomeRejected)
	case provider.ClassAbsent:
		s.state.set(prior)
		return s.absent(ctx, err)
	default:
		s.deps.Logger.Error("session: connect failed after %d attempt(s): %v", attempts, err)
		s.state.set(disconnected())
		s.state.setErr(fmt.Errorf("%w: %w", lenderr.ErrConnectFailed, err))
		s.record(OutcomeFailed)
	}
	return nil
}

func isTransient(err error) bool {
	return provider.Classify(err) == provider.ClassTransient
}
