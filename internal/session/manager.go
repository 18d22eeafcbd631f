package session

import (
	"context"
	"errors"
	"sync"

	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/shared/id"
	"go.uber.org/zap"
)

// Manager creates and tracks live sessions.
type Manager struct {
	template Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use template.
func NewManager(template Config) *Manager {
	logger := template.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		template: template,
		logger:   logger,
		metrics:  template.Metrics,
		sessions: make(map[string]*Session),
	}
}

// Open creates and starts a new session.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	sid := id.NewSessionID().String()
	s, err := New(ctx, sid, m.template)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sid] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetSessionsActive(count)
	m.logger.Info("session opened", zap.String("session", sid))
	s.Start(ctx)
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(sid string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sid]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes and forgets one session.
func (m *Manager) Close(ctx context.Context, sid string) error {
	m.mu.Lock()
	s, ok := m.sessions[sid]
	delete(m.sessions, sid)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	m.metrics.SetSessionsActive(count)
	m.logger.Info("session closed", zap.String("session", sid))
	return s.Close(ctx)
}

// Shutdown closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range all {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	m.metrics.SetSessionsActive(0)
	return errors.Join(errs...)
}
