package core

import (
	"sort"
	"sync"
)

// Presence is the authoritative map of who is reachable right now. An
// identity is online iff it has at least one registered connection.
//
// Registration and unregistration happen only from the hub goroutine,
// preserving single-writer discipline; the mutex exists because the
// typing coordinator's expiry timers look up recipients from their own
// goroutines.
type Presence struct {
	mu    sync.RWMutex
	conns map[Identity]map[*Conn]struct{}
}

// NewPresence constructs an empty registry.
func NewPresence() *Presence {
	return &Presence{conns: make(map[Identity]map[*Conn]struct{})}
}

// Register records the connection under its identity. Returns true if
// the identity just came online (had no prior connections).
func (p *Presence) Register(c *Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[c.Identity]
	if !ok {
		set = make(map[*Conn]struct{})
		p.conns[c.Identity] = set
	}
	set[c] = struct{}{}
	return !ok
}

// Unregister removes exactly the given connection. Unregistering a
// connection that was never registered is a no-op. Returns true if the
// identity went offline (its connection set became empty).
func (p *Presence) Unregister(c *Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[c.Identity]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(p.conns, c.Identity)
		return true
	}
	return false
}

// Lookup returns the live connections owned by the identity. The slice
// is a copy; mutating it does not affect the registry.
func (p *Presence) Lookup(id Identity) []*Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set := p.conns[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Contains reports whether the given connection is still registered.
func (p *Presence) Contains(c *Conn) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	set, ok := p.conns[c.Identity]
	if !ok {
		return false
	}
	_, ok = set[c]
	return ok
}

// Snapshot returns the sorted set of online identities.
func (p *Presence) Snapshot() []Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Identity, 0, len(p.conns))
	for id := range p.conns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// All returns every registered connection.
func (p *Presence) All() []*Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*Conn
	for _, set := range p.conns {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}
