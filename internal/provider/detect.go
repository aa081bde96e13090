package provider

import (
	"sync"
)

// DefaultGlobals are the names probed for an injected wallet, in order.
//
//nolint:gochecknoglobals // Static lookup list
var DefaultGlobals = []string{"phantom.solana", "solana"}

// Host exposes the globals injected by the runtime environment.
// Values are untrusted and may be of any type.
type Host interface {
	Lookup(name string) (any, bool)
}

// Detect probes host for a wallet capability. A value qualifies when it
// implements Provider and carries either the explicit wallet marker or a
// connection-state field. Detect never panics.
func Detect(host Host, names ...string) (p Provider, ok bool) {
	if host == nil {
		return nil, false
	}
	if len(names) == 0 {
		names = DefaultGlobals
	}

	defer func() {
		if r := recover(); r != nil {
			p, ok = nil, false
		}
	}()

	for _, name := range names {
		v, found := host.Lookup(name)
		if !found || v == nil {
			continue
		}
		candidate, isProvider := v.(Provider)
		if !isProvider {
			continue
		}
		if hasMarker(v) {
			return candidate, true
		}
	}
	return nil, false
}

func hasMarker(v any) bool {
	m, ok := v.(Markers)
	if !ok {
		return false
	}
	if m.IsWallet() {
		return true
	}
	_, present := m.IsConnected()
	return present
}

// HostResolver returns a Resolver that runs Detect against host on every call.
func HostResolver(host Host, names ...string) Resolver {
	return func() (Provider, bool) {
		return Detect(host, names...)
	}
}

// Globals is an in-memory Host. The zero value is ready to use.
type Globals struct {
	mu     sync.RWMutex
	values map[string]any
}

// Set injects a global.
func (g *Globals) Set(name string, v any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.values == nil {
		g.values = make(map[string]any)
	}
	g.values[name] = v
}

// Delete removes a global.
func (g *Globals) Delete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.values, name)
}

// Lookup implements Host.
func (g *Globals) Lookup(name string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[name]
	return v, ok
}
