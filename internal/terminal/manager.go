package terminal

import (
	"sync"

	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager tracks open terminal sessions.
type Manager struct {
	svc     OrderServicer
	catalog Catalog
	log     logrus.FieldLogger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager.
func NewManager(svc OrderServicer, catalog Catalog, log logrus.FieldLogger) *Manager {
	return &Manager{
		svc:      svc,
		catalog:  catalog,
		log:      log,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open starts a new session with an empty pending order.
func (m *Manager) Open() *Session {
	s := newSession(m.svc, m.catalog)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.log.WithField("session_id", s.id.String()).Debug("session opened")
	return s
}

// Get returns an open session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards a session and its pending order.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.log.WithField("session_id", id.String()).Debug("session closed")
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MirrorCatalog reads session reference data from a mirror set.
type MirrorCatalog struct {
	Set *mirror.Set
}

func (c MirrorCatalog) Items() []model.MenuItem { return c.Set.Items.Snapshot() }

func (c MirrorCatalog) ActiveOrder(id int64) (model.Order, bool) {
	return c.Set.FindActiveOrder(id)
}
