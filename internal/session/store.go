package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curricle/catalog-api/internal/search"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

// Persistence stores serialized session state across restarts. Satisfied by
// repository.CacheRepository; a nil Persistence keeps sessions in memory
// only.
type Persistence interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type persistedSession struct {
	UserID string `json:"user_id,omitempty"`
	State  State  `json:"state"`
}

// ManagerConfig collects the manager's dependencies and tunables.
type ManagerConfig struct {
	Executor    Executor
	Recorder    Recorder
	Stale       StaleCounter
	Persistence Persistence
	TTL         time.Duration
	PerPage     int
	Logger      *zap.Logger
}

// Manager creates, caches and persists sessions. Live sessions are held in
// memory; state is written through to persistence on Save so another
// instance or a restart can rebuild them.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	executor Executor
	recorder Recorder
	stale    StaleCounter
	store    Persistence
	ttl      time.Duration
	perPage  int
	logger   *zap.Logger
}

// NewManager builds a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions: map[string]*Session{},
		executor: cfg.Executor,
		recorder: cfg.Recorder,
		stale:    cfg.Stale,
		store:    cfg.Persistence,
		ttl:      ttl,
		perPage:  cfg.PerPage,
		logger:   logger,
	}
}

// CurrentSemester derives the default catalog semester from the clock.
// January through June counts as Spring of the current year, the rest of
// the year as Fall.
func CurrentSemester(now time.Time) (search.TermName, int) {
	if now.Month() <= time.June {
		return search.TermSpring, now.Year()
	}
	return search.TermFall, now.Year()
}

// Create opens a new session seeded at the current semester.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	term, year := CurrentSemester(time.Now())
	state := NewState(term, year, m.perPage)
	sess := NewSession(uuid.NewString(), state, m.executor, m.recorder, m.stale, m.logger)
	sess.UserID = userID

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns a live session, rebuilding it from persistence when this
// instance has not seen it yet.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.store == nil {
		return nil, appErrors.ErrSessionNotFound
	}
	var saved persistedSession
	if err := m.store.Get(ctx, sessionKey(id), &saved); err != nil {
		return nil, appErrors.ErrSessionNotFound
	}

	sess = NewSession(id, &saved.State, m.executor, m.recorder, m.stale, m.logger)
	sess.UserID = saved.UserID

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		// lost a rebuild race, keep the first one
		return existing, nil
	}
	m.sessions[id] = sess
	return sess, nil
}

// Save writes the session's current state through to persistence and
// refreshes its TTL.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if m.store == nil {
		return nil
	}
	state := sess.State()
	err := m.store.Set(ctx, sessionKey(sess.ID), persistedSession{UserID: sess.UserID, State: state}, m.ttl)
	if err != nil {
		m.logger.Warn("failed to persist session", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return err
}

func sessionKey(id string) string {
	return "session:" + id
}
