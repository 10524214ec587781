package debounce

import (
	"sync"
	"time"
)

// Group coalesces calls per key: every Do resets the key's timer and only
// the last fn runs, once, after delay of silence.
type Group struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	stopped bool
}

func New(delay time.Duration) *Group {
	return &Group{
		delay:  delay,
		timers: map[string]*time.Timer{},
		gen:    map[string]uint64{},
	}
}

func (g *Group) Do(key string, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if t, ok := g.timers[key]; ok {
		t.Stop()
	}
	g.gen[key]++
	my := g.gen[key]
	g.timers[key] = time.AfterFunc(g.delay, func() {
		g.mu.Lock()
		if g.stopped || g.gen[key] != my {
			g.mu.Unlock()
			return
		}
		delete(g.timers, key)
		g.mu.Unlock()
		fn()
	})
}

// Pending reports whether key has a call waiting.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[key]
	return ok
}

// Stop drops every pending call.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	for k, t := range g.timers {
		t.Stop()
		delete(g.timers, k)
	}
}
