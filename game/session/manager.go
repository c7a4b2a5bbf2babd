package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// EngineFactory builds the game engine for a new session
type EngineFactory func(sessionID string, config *engine.BoardConfig) (*engine.GameEngine, error)

// SquareResolver turns board square references into dataset locations
type SquareResolver interface {
	Resolve(refs []engine.SquareRef) ([]engine.Location, error)
}

// NewEngineFactory resolves board squares through the resolver and passes opts
// to every engine. Each engine logs with its session id.
func NewEngineFactory(resolver SquareResolver, logger zerolog.Logger, opts ...engine.Option) EngineFactory {
	return func(sessionID string, config *engine.BoardConfig) (*engine.GameEngine, error) {
		squares, err := resolver.Resolve(config.Squares)
		if err != nil {
			return nil, fmt.Errorf("board '%s': %w", config.Name, err)
		}
		all := append([]engine.Option{
			engine.WithLogger(logger.With().Str("session", sessionID).Logger()),
		}, opts...)
		return engine.NewEngine(config, squares, all...)
	}
}

// Manager handles game session lifecycle
type Manager struct {
	sessions  map[string]*service.Session
	newEngine EngineFactory
	logger    zerolog.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(factory EngineFactory, logger zerolog.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*service.Session),
		newEngine: factory,
		logger:    logger,
		now:       time.Now,
	}
}

// Create creates a new session with the given ID and board. An empty id
// gets a generated 4-character one.
func (m *Manager) Create(id string, configID string, config *engine.BoardConfig) (*service.Session, error) {
	id = strings.TrimSpace(id)
	if strings.ContainsAny(id, "/ ") {
		return nil, ErrInvalidSessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionIDLocked()
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := m.newEngine(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := m.now()
	session := &service.Session{
		ID:        id,
		ConfigID:  configID,
		Engine:    eng,
		Config:    config,
		CreatedAt: now,
	}
	session.Touch(now)
	m.sessions[strings.ToLower(id)] = session

	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.Touch(m.now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.AccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// RunCleanup expires idle sessions every interval until ctx is done
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupExpiredSessions(maxAge); n > 0 {
				m.logger.Info().Int("removed", n).Dur("max_age", maxAge).Msg("Expired idle sessions")
			}
		}
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionIDLocked returns an unused random 4-character id
func (m *Manager) generateSessionIDLocked() string {
	bytes := make([]byte, 2)
	for {
		rand.Read(bytes)
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) {
			return id
		}
	}
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
