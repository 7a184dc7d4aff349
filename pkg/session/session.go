// Package session keeps one pipeline engine per acting operator. All
// projection state is session-scoped and in-memory; the record store
// stays the single source of truth across sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/propertydeck/leadsync/pkg/logger"
	"github.com/propertydeck/leadsync/pkg/models"
	"github.com/propertydeck/leadsync/pkg/permissions"
	"github.com/propertydeck/leadsync/pkg/pipeline"
	"github.com/propertydeck/leadsync/pkg/recordstore"
)

// Session bundles the per-operator pipeline components
type Session struct {
	User    *models.User
	State   *pipeline.State
	Fetcher *pipeline.Fetcher
	Engine  *pipeline.Engine
	Bulk    *pipeline.Coordinator

	// Debounce coalesces rapid filter edits into one background board
	// prefetch, so switching views after settling on a filter is instant.
	Debounce *pipeline.Debouncer

	mu       sync.Mutex
	preview  []models.ImportRow
	lastSeen time.Time
}

// SetPreview stores the parsed rows of the operator's pending import
func (s *Session) SetPreview(rows []models.ImportRow) {
	s.mu.Lock()
	s.preview = rows
	s.mu.Unlock()
}

// TakePreview returns and clears the pending import rows
func (s *Session) TakePreview() []models.ImportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.preview
	s.preview = nil
	return rows
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

// Manager creates, reuses and expires sessions keyed by user id
type Manager struct {
	store        recordstore.Store
	log          logger.Logger
	ttl          time.Duration
	debounce     time.Duration
	boardPage    int
	boardHardCap int
	defaultsFor  func(role string) permissions.Defaults

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. defaultsFor maps a role to its
// default grants; it is consulted once per session creation.
func NewManager(store recordstore.Store, log logger.Logger, ttl, debounce time.Duration, boardPage, boardHardCap int, defaultsFor func(role string) permissions.Defaults) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		store:        store,
		log:          log,
		ttl:          ttl,
		debounce:     debounce,
		boardPage:    boardPage,
		boardHardCap: boardHardCap,
		defaultsFor:  defaultsFor,
		sessions:     make(map[string]*Session),
	}
}

// Get returns the user's session, creating it on first use. Every call
// refreshes the idle timer.
func (m *Manager) Get(user *models.User) *Session {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[user.ID]; ok {
		s.touch(now)
		return s
	}

	state := pipeline.NewState()
	defaults := m.defaultsFor(user.Role)
	fetcher := pipeline.NewFetcher(m.store, state, user, defaults, m.log, m.boardPage, m.boardHardCap)
	s := &Session{
		User:    user,
		State:   state,
		Fetcher: fetcher,
		Engine:  pipeline.NewEngine(m.store, state, m.log),
		Bulk:    pipeline.NewCoordinator(m.store, state, m.log),
		Debounce: pipeline.NewDebouncer(m.debounce, func(q models.QueryDescriptor) {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := fetcher.Reload(ctx, q); err != nil {
				m.log.Debug("debounced prefetch failed", "user", user.ID, "error", err)
			}
		}),
	}
	s.touch(now)
	m.sessions[user.ID] = s

	m.log.Debug("session created", "user", user.ID, "role", user.Role)
	return s
}

// Sweep drops sessions idle past the TTL and returns how many were removed
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.expired(now, m.ttl) {
			s.Debounce.Stop()
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("expired sessions swept", "removed", removed, "active", len(m.sessions))
	}
	return removed
}

// Active returns the number of live sessions
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
