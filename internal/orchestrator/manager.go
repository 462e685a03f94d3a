package orchestrator

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/intent"
	"kiosk/agent/internal/watchdog"
)

var (
	ErrSessionExists  = errors.New("session already running")
	ErrUnknownSession = errors.New("unknown session")
	// ErrStartAbandoned is returned by Launch when the session was ended
	// while its collaborators were being built.
	ErrStartAbandoned = errors.New("session ended while starting")
)

// CatalogSource hands out the catalog new sessions start with.
type CatalogSource interface {
	Current() *catalog.Catalog
}

type ManagerConfig struct {
	Watchdog      watchdog.Config
	MediaFallback time.Duration
	Clock         clockwork.Clock
	Logger        *zap.Logger
	EventLog      EventLog
}

// Manager runs one Session per kiosk visit. Each session keeps the catalog
// that was current when it started.
type Manager struct {
	cfg      ManagerConfig
	catalogs CatalogSource

	mu       sync.Mutex
	sessions map[string]*Session
	// starting reserves ids whose collaborators are being built; true
	// marks a reservation that End abandoned.
	starting map[string]bool
}

func NewManager(src CatalogSource, cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		catalogs: src,
		sessions: make(map[string]*Session),
		starting: make(map[string]bool),
	}
}

// Start launches a session. An empty id gets a fresh UUID.
func (m *Manager) Start(id string, collab Collaborators) (*Session, error) {
	return m.Launch(id, func(string) Collaborators { return collab })
}

// Launch reserves id, builds its collaborators outside the lock and starts
// the session. Only one caller per id gets to build; the others see
// ErrSessionExists without build being called.
func (m *Manager) Launch(id string, build func(id string) Collaborators) (*Session, error) {
	if id == "" {
		id = uuid.New().String()
	}
	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return nil, ErrSessionExists
	}
	if _, ok := m.starting[id]; ok {
		m.mu.Unlock()
		return nil, ErrSessionExists
	}
	m.starting[id] = false
	m.mu.Unlock()

	collab := build(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	abandoned := m.starting[id]
	delete(m.starting, id)
	if abandoned {
		return nil, ErrStartAbandoned
	}
	s := StartSession(Options{
		ID: id,
		Env: Env{
			Resolver:      intent.NewResolver(m.catalogs.Current()),
			MediaFallback: m.cfg.MediaFallback,
		},
		Watchdog: m.cfg.Watchdog,
		Clock:    m.cfg.Clock,
		Logger:   m.cfg.Logger,
		EventLog: m.cfg.EventLog,
	}, collab)
	m.sessions[id] = s
	m.cfg.Logger.Info("session started", zap.String("session_id", id))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Submit routes an event to a running session.
func (m *Manager) Submit(id string, ev Event) error {
	s, ok := m.Get(id)
	if !ok {
		return ErrUnknownSession
	}
	return s.Submit(ev)
}

// End stops and forgets a session. A session still starting is abandoned:
// its Launch returns ErrStartAbandoned.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	if _, starting := m.starting[id]; starting && !ok {
		m.starting[id] = true
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}
	s.Close()
	return nil
}

func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CloseAll ends every session; used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
