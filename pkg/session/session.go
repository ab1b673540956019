package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/releva-ai/releva-go/pkg/log"
	"github.com/releva-ai/releva-go/pkg/metrics"
	"github.com/releva-ai/releva-go/pkg/storage"
	"github.com/rs/zerolog"
)

// DefaultDuration is how long a session id stays valid after it is minted
const DefaultDuration = 24 * time.Hour

// Session is an advisory correlation id for a burst of tracking activity
type Session struct {
	ID        string
	CreatedAt time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithDuration overrides the session lifetime
func WithDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.duration = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides how new session ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// WithRotateHook registers a callback invoked after a new session is persisted
func WithRotateHook(fn func(Session)) Option {
	return func(m *Manager) {
		m.onRotate = fn
	}
}

// Manager owns the session id lifecycle. Sessions are created lazily and
// replaced once they are older than the configured duration.
type Manager struct {
	store    storage.Store
	duration time.Duration
	now      func() time.Time
	newID    func() string
	onRotate func(Session)
	logger   zerolog.Logger

	// mu keeps the id/timestamp pair consistent for readers in this process
	mu sync.Mutex
}

// NewManager creates a session manager backed by store
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		duration: DefaultDuration,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   log.WithComponent("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the current session, minting and persisting a new one
// when none is stored or the stored one has expired.
func (m *Manager) GetOrCreate() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	current, ok, err := m.load()
	if err != nil {
		return Session{}, err
	}
	if ok && now.Sub(current.CreatedAt) < m.duration {
		return current, nil
	}

	next := Session{ID: m.newID(), CreatedAt: now}

	// The two writes are not atomic. A crash between them leaves a new id
	// with a stale timestamp, which simply expires on the next read.
	if err := m.store.SetString(storage.KeySessionID, next.ID); err != nil {
		return Session{}, fmt.Errorf("failed to persist session id: %w", err)
	}
	if err := m.store.SetLong(storage.KeySessionTimestamp, next.CreatedAt.UnixMilli()); err != nil {
		return Session{}, fmt.Errorf("failed to persist session timestamp: %w", err)
	}

	metrics.SessionRotationsTotal.Inc()
	m.logger.Debug().
		Str("session_id", next.ID).
		Bool("expired", ok).
		Msg("new session")

	if m.onRotate != nil {
		m.onRotate(next)
	}
	return next, nil
}

// Current returns the stored session without creating or rotating one
func (m *Manager) Current() (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (Session, bool, error) {
	id, hasID, err := m.store.GetString(storage.KeySessionID)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session id: %w", err)
	}
	ts, hasTS, err := m.store.GetLong(storage.KeySessionTimestamp)
	if err != nil {
		return Session{}, false, fmt.Errorf("failed to read session timestamp: %w", err)
	}
	if !hasID || !hasTS || id == "" {
		return Session{}, false, nil
	}
	return Session{ID: id, CreatedAt: time.UnixMilli(ts)}, true, nil
}
