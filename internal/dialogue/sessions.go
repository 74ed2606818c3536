package dialogue

import (
	"context"
	"sync"
	"time"

	"inspectbot/internal/models"
)

// SessionStore keeps one conversation state per user id.
type SessionStore interface {
	// Load returns the stored session, or a fresh one for an unseen user.
	Load(ctx context.Context, userID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore holds sessions in process memory. With a positive idle timeout,
// sessions untouched for longer than the timeout are treated as absent.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store. idle <= 0 keeps sessions for the
// process lifetime.
func NewMemoryStore(idle time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		idle:     idle,
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(s models.Session, now time.Time) bool {
	return m.idle > 0 && now.Sub(s.UpdatedAt) > m.idle
}

// Load implements SessionStore.
func (m *MemoryStore) Load(_ context.Context, userID string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()

	if !ok || m.expired(s, m.now()) {
		return models.NewSession(userID), nil
	}
	return &s, nil
}

// Save implements SessionStore. The session is copied.
func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	cp := *s
	cp.UpdatedAt = m.now()

	m.mu.Lock()
	m.sessions[cp.UserID] = cp
	m.mu.Unlock()
	return nil
}

// Delete implements SessionStore.
func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of held sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	if m.idle <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// userLocks serializes turns per user id. Entries are dropped once no
// goroutine holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until userID is free and returns the matching unlock.
func (u *userLocks) Lock(userID string) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &userLock{}
		u.locks[userID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}

func (u *userLocks) size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locks)
}
