// Package session tracks the session id every event is attributed to.
// Sessions live in memory only.
package session

import (
	"sync"

	"codeberg.org/mutker/rumcollect/internal/clock"
	"codeberg.org/mutker/rumcollect/internal/history"
	"codeberg.org/mutker/rumcollect/internal/lifecycle"
	"codeberg.org/mutker/rumcollect/internal/schedule"
	"github.com/google/uuid"
)

// DefaultMaxDuration is the longest a session lives before it is renewed.
const DefaultMaxDuration = 4 * clock.OneHour

type Config struct {
	MaxDuration clock.Duration
	History     history.Config
}

func DefaultConfig() Config {
	return Config{
		MaxDuration: DefaultMaxDuration,
		History:     history.DefaultConfig(),
	}
}

// Manager owns the current session and remembers past ones, so that late
// events are attributed to the session they happened in.
type Manager struct {
	lc          *lifecycle.LifeCycle
	scheduler   schedule.Scheduler
	clock       *clock.Clock
	maxDuration clock.Duration
	sessions    *history.ValueHistory[string]

	mu      sync.Mutex
	id      string
	expiry  schedule.Timer
	stopped bool
}

// StartManager opens the first session.
func StartManager(lc *lifecycle.LifeCycle, s schedule.Scheduler, clk *clock.Clock, cfg Config) *Manager {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}

	m := &Manager{
		lc:          lc,
		scheduler:   s,
		clock:       clk,
		maxDuration: cfg.MaxDuration,
		sessions:    history.New[string](s, clk.RelativeNow, cfg.History),
	}

	// The first session covers the page from its origin.
	m.mu.Lock()
	m.open(0)
	m.mu.Unlock()
	return m
}

// open starts a new session at now. Must be called with mu held.
func (m *Manager) open(now clock.RelativeTime) {
	m.id = uuid.NewString()
	m.sessions.Add(m.id, now)
	m.expiry = m.scheduler.AfterFunc(m.maxDuration.Std(), func() { m.Renew() })
}

// ID returns the current session id.
func (m *Manager) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// FindSession returns the session that was current at the given time.
func (m *Manager) FindSession(at clock.RelativeTime) (string, bool) {
	return m.sessions.Find(at)
}

// Renew closes the current session, opens a new one and notifies
// SessionRenewed. It returns the new id.
func (m *Manager) Renew() string {
	m.mu.Lock()
	if m.stopped {
		id := m.id
		m.mu.Unlock()
		return id
	}
	now := m.clock.RelativeNow()
	m.expiry.Stop()
	m.sessions.CloseActive(now)
	m.open(now)
	id := m.id
	m.mu.Unlock()

	m.lc.Notify(lifecycle.SessionRenewed, lifecycle.SessionRenewedEvent{SessionID: id})
	return id
}

// Stop cancels expiry and the history sweep. It is idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	expiry := m.expiry
	m.mu.Unlock()

	schedule.StopAll(expiry)
	m.sessions.Stop()
}
