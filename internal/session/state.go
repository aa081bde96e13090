package session

import (
	"sync"
)

// store holds the session record and its subscribers. Writes are
// serialized; the most recent write wins, and subscribers see writes in
// the order they were applied.
type store struct {
	// notifyMu is held across a write and its notifications. Subscribers
	// must not write to the store.
	notifyMu sync.Mutex

	mu      sync.Mutex
	current Snapshot
	lastErr error
	subs    map[int]func(Snapshot)
	nextSub int
}

func newStore() *store {
	return &store{
		current: disconnected(),
		subs:    make(map[int]func(Snapshot)),
	}
}

func (s *store) get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// set replaces the record and notifies subscribers outside mu, so they
// may read the session.
func (s *store) set(next Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.current = next.clone()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next.clone())
	}
}

func (s *store) subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

func (s *store) unsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[int]func(Snapshot))
}

func (s *store) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *store) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
