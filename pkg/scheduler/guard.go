package scheduler

import "sync"

// Guard tracks the current key of a polled resource, such as the pool
// address a panel is following. A run captures a Ticket before fetching and
// checks it before publishing; if the key changed meanwhile the result is
// stale and must be dropped.
type Guard struct {
	mu    sync.RWMutex
	key   string
	epoch uint64
}

// Ticket is the guard state observed when a run began.
type Ticket struct {
	Key   string
	epoch uint64
}

// Set changes the key and invalidates tickets issued for the old one.
// Setting the current key again is a no-op.
func (g *Guard) Set(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if key == g.key {
		return
	}
	g.key = key
	g.epoch++
}

// Key returns the current key.
func (g *Guard) Key() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.key
}

func (g *Guard) Ticket() Ticket {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Ticket{Key: g.key, epoch: g.epoch}
}

// Valid reports whether t still matches the current key.
func (g *Guard) Valid(t Ticket) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return t.epoch == g.epoch
}
