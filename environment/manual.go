// Package environment provides Environment implementations for hosts that do
// not have a native notion of visibility, such as servers, CLIs and tests.
package environment

import (
	"sync"
	"time"

	"github.com/piperia-salata-create/Medy-App-sub001/internal/fanout"
	"github.com/piperia-salata-create/Medy-App-sub001/types"
)

const (
	foregroundKey = "foreground"
	onlineKey     = "online"
)

// Manual is an Environment whose foreground and online flags are set by the caller.
//
// Listeners are invoked synchronously, outside the internal lock, only when a
// flag actually changes. The clock defaults to time.Now and can be replaced
// with a fixed or advancing time for deterministic tests.
type Manual struct {
	mu         sync.Mutex
	foreground bool
	online     bool
	now        func() time.Time
	fixed      time.Time
	useFixed   bool

	listeners *fanout.Registry[func(bool)]
}

// Compile-time assertion that Manual implements Environment.
var _ types.Environment = (*Manual)(nil)

// NewManual creates a manual environment with the given initial flags.
func NewManual(foreground, online bool) *Manual {
	return &Manual{
		foreground: foreground,
		online:     online,
		now:        time.Now,
		listeners:  fanout.New[func(bool)](),
	}
}

// System returns an environment that is always foreground and online and uses the wall clock.
func System() *Manual {
	return NewManual(true, true)
}

// Now returns the current time of the environment.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.useFixed {
		return m.fixed
	}

	return m.now()
}

// SetNow freezes the clock at t.
func (m *Manual) SetNow(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fixed = t
	m.useFixed = true
}

// Advance moves a frozen clock forward by d. It freezes the wall clock first if needed.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.useFixed {
		m.fixed = m.now()
		m.useFixed = true
	}
	m.fixed = m.fixed.Add(d)

	return m.fixed
}

// IsForeground reports whether the host is visible.
func (m *Manual) IsForeground() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.foreground
}

// IsOnline reports whether the host has network connectivity.
func (m *Manual) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

// SetForeground updates the visibility flag and notifies listeners on change.
func (m *Manual) SetForeground(foreground bool) {
	m.mu.Lock()
	if m.foreground == foreground {
		m.mu.Unlock()
		return
	}
	m.foreground = foreground
	m.mu.Unlock()

	for _, cb := range m.listeners.Snapshot(foregroundKey) {
		cb(foreground)
	}
}

// SetOnline updates the connectivity flag and notifies listeners on change.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	for _, cb := range m.listeners.Snapshot(onlineKey) {
		cb(online)
	}
}

// OnForegroundChange registers a visibility listener.
func (m *Manual) OnForegroundChange(cb func(foreground bool)) types.Unsubscribe {
	return m.listeners.Add(foregroundKey, cb)
}

// OnOnlineChange registers a connectivity listener.
func (m *Manual) OnOnlineChange(cb func(online bool)) types.Unsubscribe {
	return m.listeners.Add(onlineKey, cb)
}

// ListenerCount returns the number of registered listeners of both kinds.
func (m *Manual) ListenerCount() int {
	return m.listeners.Len()
}
