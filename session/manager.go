package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// CookieName is the cookie carrying the session id.
const CookieName = "stockforecast_session"

// Session is one visitor's isolated state.
type Session struct {
	ID      string
	Created time.Time
	Cache   *SeriesCache

	mu       sync.Mutex
	lastSeen time.Time
	values   map[string]any
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:       id,
		Created:  now,
		Cache:    NewSeriesCache(),
		lastSeen: now,
		values:   make(map[string]any),
	}
}

// Set stores v under key.
func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	s.values[key] = v
	s.mu.Unlock()
}

// Value returns the value stored under key.
func (s *Session) Value(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// LastSeen is the time of the most recent request on this session.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Manager owns every live session and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL time.Duration
	now     func() time.Time
	log     *slog.Logger
	cron    *cron.Cron
}

// NewManager creates a Manager evicting sessions idle longer than idleTTL.
func NewManager(idleTTL time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
		log:      log.With("component", "session"),
	}
}

// Get returns the live session id and marks it as seen.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

// GetOrCreate returns the session for id, or a new session when id is empty,
// malformed or unknown. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if _, err := uuid.Parse(id); err == nil {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}

	s = newSession(uuid.NewString(), m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.log.Debug("session created", "session_id", s.ID)
	return s, true
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many it
// removed. A non-positive TTL disables eviction.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the cron schedule spec.
func (m *Manager) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := m.Sweep(); n > 0 {
			m.log.Info("idle sessions evicted", "count", n, "remaining", m.Len())
		}
	}); err != nil {
		return fmt.Errorf("register session sweeper: %w", err)
	}
	m.cron = c
	c.Start()
	m.log.Info("session sweeper started", "schedule", spec, "idle_ttl", m.idleTTL)
	return nil
}

// Stop halts the sweeper, if running.
func (m *Manager) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.log.Info("session sweeper stopped")
	}
}
